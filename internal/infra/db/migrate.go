package db

import (
	"fmt"

	"github.com/Spok95/barber-club/migrations"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// Migrate накатывает встроенные в бинарник миграции из каталога migrations/.
func Migrate(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
