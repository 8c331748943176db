package main

import (
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
)

func migrateUp(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m, err := infra.NewMigrator(sqlDB)
	if err != nil {
		return err
	}
	return m.Up()
}
