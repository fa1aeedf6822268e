package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"marketstall/pkg/config"
)

// MigrateConfig applies every pending migration under migrationsPath
// (a golang-migrate source URL such as file://migrations).
func MigrateConfig(migrationsPath string, cfg config.Config) error {
	return MigrateURL(migrationsPath, migrationConnString(cfg))
}

func MigrateURL(migrationsPath, databaseURL string) error {
	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}
	return nil
}
