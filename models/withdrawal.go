package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Withdrawal statuses. Payout execution is operational; the server
// records the request and debits the balance.
const (
	WithdrawalPending  = "pending"
	WithdrawalPaid     = "paid"
	WithdrawalRejected = "rejected"
)

type Withdrawal struct {
	gorm.Model
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Reference   string          `gorm:"unique;not null" json:"reference"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PhoneNumber string          `gorm:"not null" json:"phone_number"`
	Status      string          `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
}
