package database

import (
	"fmt"

	"struggles/internal/middleware"
	"struggles/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Story{},
		&models.Chat{},
		&models.Message{},
		&models.Team{},
		&models.TeamMember{},
	}
}

// Migrate brings the schema in line with PersistentModels.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	middleware.Logger.Info("Database migration completed")
	return nil
}

// TableStatus reports, per model table, whether it exists.
func TableStatus(db *gorm.DB) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, m := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, err
		}
		out[stmt.Schema.Table] = db.Migrator().HasTable(m)
	}
	return out, nil
}
