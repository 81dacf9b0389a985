package entity

type User struct {
	Base

	// TelegramID is the stable numeric identity participants are ordered by
	// during a live draw.
	TelegramID int64 `gorm:"uniqueIndex"`

	Username  string
	FirstName string
	LastName  string

	NotificationsEnabled bool
}
