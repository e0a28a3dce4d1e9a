package migrations

import (
	"earnspark-server/models"

	"gorm.io/gorm"
)

func MigrateUsers(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func MigrateTasks(db *gorm.DB) error {
	return db.AutoMigrate(&models.Task{}, &models.TaskCompletion{})
}

func MigratePayments(db *gorm.DB) error {
	return db.AutoMigrate(&models.PaymentIntent{}, &models.Withdrawal{})
}

// Run applies all migrations in dependency order.
func Run(db *gorm.DB) error {
	if err := MigrateUsers(db); err != nil {
		return err
	}
	if err := MigrateTasks(db); err != nil {
		return err
	}
	return MigratePayments(db)
}
