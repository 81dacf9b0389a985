package entity

import "time"

// Winner is created exactly once per (raffle, position); the composite
// unique index is the last line of defense against a double award even if
// the round lock is bypassed.
type Winner struct {
	Base

	RaffleID string `gorm:"uniqueIndex:idx_winners_raffle_position"`
	Raffle   Raffle `gorm:"foreignKey:RaffleID"`

	Position int `gorm:"uniqueIndex:idx_winners_raffle_position"`

	UserID string
	User   User `gorm:"foreignKey:UserID"`

	Prize string
	WonAt time.Time
}
