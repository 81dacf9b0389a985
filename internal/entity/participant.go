package entity

type Participant struct {
	Base

	RaffleID string `gorm:"uniqueIndex:idx_participants_raffle_user"`
	Raffle   Raffle `gorm:"foreignKey:RaffleID"`

	UserID string `gorm:"uniqueIndex:idx_participants_raffle_user"`
	User   User   `gorm:"foreignKey:UserID"`
}
