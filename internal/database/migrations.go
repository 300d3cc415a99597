package database

import (
	"gorm.io/gorm"

	"github.com/Maneldor/la-publica-new-sub022/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Lead{},
		&models.Task{},
		&models.Category{},
		&models.Group{},
		&models.GroupMembership{},
		&models.UserConnection{},
		&models.Request{},
		&models.AuditLog{},
		&models.Notification{},
	)
}

// SeedData populates the default group categories. The sensitive categories
// carry the privacy flags enforced when a membership is approved.
func SeedData(db *gorm.DB) error {
	categories := []models.Category{
		{
			BaseModel: models.BaseModel{ID: "general"},
			Name:      "General",
		},
		{
			BaseModel: models.BaseModel{ID: "professional"},
			Name:      "Professional",
		},
		{
			BaseModel:         models.BaseModel{ID: "health"},
			Name:              "Health & Wellbeing",
			Sensitive:         true,
			ForceHideEmail:    true,
			ForceHidePhone:    true,
			ForceHideEmployer: true,
		},
		{
			BaseModel:         models.BaseModel{ID: "unions"},
			Name:              "Union Representation",
			Sensitive:         true,
			ForceHideEmployer: true,
		},
	}

	for _, category := range categories {
		if err := db.Where(models.Category{BaseModel: models.BaseModel{ID: category.ID}}).
			Attrs(category).
			FirstOrCreate(&models.Category{}).Error; err != nil {
			return err
		}
	}

	return nil
}
