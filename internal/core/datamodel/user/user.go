package user

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;size:64;uniqueIndex;not null"`
	Username     string    `gorm:"column:username;size:64;uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;size:256;not null"`
	Confirmed    bool      `gorm:"column:confirmed;not null"`
	RoleID       *int64    `gorm:"column:role_id;index"`
	MemberSince  time.Time `gorm:"column:member_since;not null"`
	LastSeen     time.Time `gorm:"column:last_seen;not null"`
}

func (User) TableName() string {
	return "users"
}
