package models

import (
	"time"
)

// Допустимые значения полей KYC
var (
	Genders       = []string{"male", "female", "other"}
	MaritalStatus = []string{"married", "single", "other"}
	IdentityTypes = []string{"national_id_card", "drivers_licence", "international_passport"}
)

// KYC представляет анкету проверки личности клиента
type KYC struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"column:user_id;uniqueIndex;not null" json:"userId"`
	User          User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AccountID     *uint     `gorm:"column:account_id;index" json:"accountId,omitempty"`
	FullName      string    `gorm:"column:full_name;not null;size:1000" json:"fullName"`
	Gender        string    `gorm:"column:gender;size:40" json:"gender"`
	MaritalStatus string    `gorm:"column:marrital_status;size:40" json:"maritalStatus"`
	IdentityType  string    `gorm:"column:identity_type;size:140" json:"identityType"`
	DateOfBirth   time.Time `gorm:"column:date_of_birth" json:"dateOfBirth"`
	Country       string    `gorm:"column:country;size:100" json:"country"`
	State         string    `gorm:"column:state;size:100" json:"state"`
	City          string    `gorm:"column:city;size:100" json:"city"`
	Mobile        string    `gorm:"column:mobile;size:1000" json:"mobile"`
	Fax           string    `gorm:"column:fax;size:1000" json:"fax"`
	CreatedAt     time.Time `gorm:"column:date" json:"date"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"-"`
}

func (KYC) TableName() string {
	return "kyc"
}
