package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Task struct {
	gorm.Model
	Title       string          `gorm:"not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Reward      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"reward"`
	Active      bool            `gorm:"default:true" json:"active"`
}

// TaskCompletion records that a user completed a task. One row per
// user/task pair; the reward amount is frozen at completion time.
type TaskCompletion struct {
	gorm.Model
	UserID         uint            `gorm:"not null;uniqueIndex:idx_user_task" json:"user_id"`
	TaskID         uint            `gorm:"not null;uniqueIndex:idx_user_task" json:"task_id"`
	RewardedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"rewarded_amount"`
}
