package models

import "time"

// User 用户表
type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	Email        string    `gorm:"column:email;size:191;uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"column:full_name;size:255" json:"full_name"`
	PasswordHash string    `gorm:"column:password_hash;size:255" json:"-"`
	IsAdmin      bool      `gorm:"column:is_admin;default:false" json:"is_admin"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// DisplayName 邮件称呼，没有姓名时用邮箱
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
