package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	intdb "dispatch/internal/db"
	"dispatch/internal/utils"
)

var (
	DB   *intdb.DB
	dbMu sync.Mutex
)

// ConnectDB initializes the shared DB connection (idempotent).
func ConnectDB(env Env) (*intdb.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		return DB, nil
	}

	db, err := intdb.Open(env.DBDriver, env.DBDSN)
	if err != nil {
		return nil, err
	}
	if db.Dialect().Name() != "sqlite" {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(10 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", db.Dialect().Name(), err)
	}

	DB = db
	utils.L().Info("database connected", zap.String("driver", db.Dialect().Name()))
	return DB, nil
}

func CloseDB() {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		_ = DB.Close()
		DB = nil
	}
}
