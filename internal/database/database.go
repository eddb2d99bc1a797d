package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Registers the CGO-free "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// Connect opens the ledger database. Postgres DSNs get the real driver;
// anything else is treated as a SQLite path (modernc driver, no CGO).
func Connect(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("connecting to PostgreSQL")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.Println("using SQLite:", dsn)
	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
}
