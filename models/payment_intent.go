package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus is the canonical state of a payment attempt.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusSuccess   PaymentStatus = "success"
	StatusFailed    PaymentStatus = "failed"
	StatusCancelled PaymentStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// validTransitions has no outgoing edges from terminal states.
var validTransitions = map[PaymentStatus][]PaymentStatus{
	StatusPending:   {StatusSuccess, StatusFailed, StatusCancelled},
	StatusSuccess:   {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// CanTransition reports whether moving from s to next is allowed.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == next {
			return true
		}
	}
	return false
}

// Intent purposes.
const (
	PurposeActivation = "activation"
	PurposeDeposit    = "deposit"
)

// PaymentIntent is one row per payment attempt. Rows are never deleted;
// they double as the audit trail. Reference is assigned before any
// provider call and never changes.
type PaymentIntent struct {
	gorm.Model
	Reference                 string          `gorm:"unique;not null" json:"reference"`
	ProviderTransactionID     *string         `gorm:"index" json:"provider_transaction_id"`
	Status                    PaymentStatus   `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	Amount                    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PhoneNumber               string          `gorm:"not null" json:"phone_number"`
	Purpose                   string          `gorm:"type:varchar(16);default:'activation'" json:"purpose"`
	UserID                    *uint           `gorm:"index" json:"user_id"`
	MpesaReceiptNumber        *string         `json:"mpesa_receipt_number"`
	ProviderResultCode        *string         `json:"provider_result_code"`
	ProviderResultDescription *string         `json:"provider_result_description"`
}

// IsTerminal reports whether the intent has reached a final status.
func (p *PaymentIntent) IsTerminal() bool {
	return p.Status.IsTerminal()
}
