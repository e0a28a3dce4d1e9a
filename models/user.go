package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email       string          `gorm:"unique;not null" json:"email"`
	Password    string          `gorm:"not null" json:"-"`
	PhoneNumber string          `json:"phone_number"`
	Activated   bool            `gorm:"default:false" json:"activated"`
	Balance     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"balance"`
	PushToken   string          `gorm:"column:push_token" json:"push_token"`
}
