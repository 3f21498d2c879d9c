package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username    string    `gorm:"column:username;unique;not null;size:100" json:"username"`
	Email       string    `gorm:"column:email;unique;not null;size:100;index" json:"email"`
	FirstName   string    `gorm:"column:first_name;size:50" json:"firstName"`
	LastName    string    `gorm:"column:last_name;size:50" json:"lastName"`
	Password    string    `gorm:"column:password;not null;size:100" json:"-"`
	IsStaff     bool      `gorm:"column:is_staff;not null;default:false" json:"isStaff"`
	IsSuperuser bool      `gorm:"column:is_superuser;not null;default:false" json:"isSuperuser"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt   time.Time `gorm:"column:date_joined" json:"dateJoined"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// FullName возвращает имя и фамилию либо логин, если имя не задано
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// BeforeCreate хук для валидации перед созданием
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if len(u.Email) < 3 || len(u.Email) > 100 {
		return errors.New("email must be between 3 and 100 characters")
	}
	if u.Username == "" || len(u.Username) > 100 {
		return errors.New("username must be between 1 and 100 characters")
	}
	if len(u.FirstName) > 50 || len(u.LastName) > 50 {
		return errors.New("first and last name must be at most 50 characters")
	}
	return nil
}
