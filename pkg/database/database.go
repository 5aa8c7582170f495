package database

import (
	"log"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init opens the Postgres connection from DATABASE_URL. The database is
// usually a managed instance that may still be waking up when the service
// starts, so the first connection is retried with exponential backoff.
func Init() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")

	var db *gorm.DB
	op := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, bo); err != nil {
		log.Fatal("failed to connect database:", err)
	}
	return db
}
