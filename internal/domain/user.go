package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash string    `gorm:"column:password;size:191;not null" json:"-"`
	Name         string    `gorm:"size:64" json:"name"`
	Role         Role      `gorm:"size:16;not null;default:user;check:chk_users_role,role IN ('admin','user')" json:"role"`
	CreatedAt    time.Time `gorm:"column:date_creation;autoCreateTime" json:"date_creation"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
