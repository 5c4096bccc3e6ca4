package config

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	model "taskgrid.com/taskgrid/internal/models"
	repository "taskgrid.com/taskgrid/internal/repositories"
)

func NewDatabaseClient(dsn string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	if err := db.AutoMigrate(&model.Task{}, &model.TagEdge{}, &repository.GridState{}); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	return db
}
