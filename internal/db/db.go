// Package db provides database connection and client functionality
package db

import (
	"database/sql"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/logx"
)

var dbLogger = logx.GetScope("db")

var baseDB *sql.DB

// Open opens a PostgreSQL connection and returns a gorm client.
func Open(cfg *config.Config) (*gorm.DB, func(), error) {
	gcfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel(cfg)),
		TranslateError: true,
	}
	gdb, err := gorm.Open(postgres.Open(cfg.PG.URL), gcfg)
	if err != nil {
		return nil, func() {}, err
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, func() {}, err
	}
	sqldb.SetMaxOpenConns(cfg.PG.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.PG.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Hour)
	baseDB = sqldb

	closer := func() {
		baseDB = nil
		if err := sqldb.Close(); err != nil {
			dbLogger.Sugar().Errorf("close db: %v", err)
		}
	}
	return gdb, closer, nil
}

func gormLogLevel(cfg *config.Config) gormlogger.LogLevel {
	if cfg.IsDevelopment() {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

// UpdatePool updates DB pool settings at runtime.
func UpdatePool(maxOpen, maxIdle int) {
	if baseDB == nil {
		return
	}
	if maxOpen > 0 {
		baseDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		baseDB.SetMaxIdleConns(maxIdle)
	}
}
