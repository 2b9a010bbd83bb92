package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open database at %s: %w", path, err)
	}

	err = db.AutoMigrate(
		&Guild{},
		&Module{},
		&GuildConfig{},
		&LevelDefinition{},
		&EngagementEvent{},
		&MemberScore{},
	)
	if err != nil {
		return nil, fmt.Errorf("unable to migrate schema: %w", err)
	}

	return db, nil
}
