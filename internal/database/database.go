package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/openisp/naps/internal/config"
	"github.com/openisp/naps/internal/naperr"
	"github.com/redis/go-redis/v9"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB    *gorm.DB
	Redis *redis.Client
)

// MySQL error numbers that no amount of retrying will fix.
const (
	errAccessDenied   = 1045
	errDBAccessDenied = 1044
	errUnknownDB      = 1049
)

func Connect(cfg *config.Config) error {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC&timeout=5s&readTimeout=5s&writeTimeout=5s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBCharset,
	)

	var err error
	delay := cfg.DBRetryBaseDelay
	for attempt := 1; attempt <= cfg.DBConnectRetries; attempt++ {
		DB, err = gorm.Open(gormmysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err == nil {
			break
		}

		if kind, fatal := classifyConnectError(err); fatal {
			// Surface immediately with the connection parameter summary,
			// never the password.
			return naperr.Wrap(kind, err, "mysql connect refused").WithDiag(
				fmt.Sprintf("host=%s port=%d db=%s user=%s", cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser),
			)
		}

		if attempt == cfg.DBConnectRetries {
			return naperr.Wrap(naperr.Unreachable, err, "mysql unreachable").WithDiag(
				fmt.Sprintf("host=%s port=%d db=%s user=%s", cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser),
				fmt.Sprintf("attempts=%d base_delay=%s backoff=%.1f", cfg.DBConnectRetries, cfg.DBRetryBaseDelay, cfg.DBRetryBackoff),
			)
		}

		log.Printf("Database connection attempt %d/%d failed: %v. Retrying in %s...",
			attempt, cfg.DBConnectRetries, err, delay)
		time.Sleep(delay)
		delay = time.Duration(float64(delay) * cfg.DBRetryBackoff)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connected successfully")

	Redis = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := Redis.Ping(ctx).Result(); err != nil {
		log.Printf("WARNING: Redis unavailable (%v) - status caching disabled", err)
		Redis = nil
	} else {
		log.Println("Redis connected successfully")
	}

	return nil
}

// classifyConnectError maps MySQL error numbers onto the non-retryable
// kinds. Everything else is considered transient for connect purposes.
func classifyConnectError(err error) (naperr.Kind, bool) {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return "", false
	}
	switch myErr.Number {
	case errAccessDenied, errDBAccessDenied:
		return naperr.AuthFailed, true
	case errUnknownDB:
		return naperr.ConfigMissing, true
	}
	return "", false
}

func Close() {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if Redis != nil {
		Redis.Close()
	}
}
