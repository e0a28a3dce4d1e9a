package seed

import (
	"log"

	"earnspark-server/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedTasks loads the starter task catalogue. Seeding is skipped when any
// tasks already exist.
func SeedTasks(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Task{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Task catalogue already seeded. Skipping.")
		return nil
	}

	tasks := []models.Task{
		{
			Title:       "Complete your profile survey",
			Description: "Tell us a little about yourself so we can match you with the right tasks.",
			Reward:      decimal.NewFromInt(50),
			Active:      true,
		},
		{
			Title:       "Product feedback survey",
			Description: "Answer 10 quick questions about shopping apps you use.",
			Reward:      decimal.NewFromInt(75),
			Active:      true,
		},
		{
			Title:       "Daily opinion poll",
			Description: "Share your opinion on today's topic.",
			Reward:      decimal.NewFromInt(25),
			Active:      true,
		},
	}

	if err := db.Create(&tasks).Error; err != nil {
		return err
	}

	log.Println("Task catalogue seeded successfully.")
	return nil
}
