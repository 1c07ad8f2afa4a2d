package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/config"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// SQLitePath is the development database used when DATABASE_URL is empty
const SQLitePath = "formulario-clientes.db"

var (
	DB          *gorm.DB
	RedisClient *redis.Client
)

// InitDatabase initializes the audit database and, when configured, Redis
func InitDatabase() error {
	db, err := Connect(config.AppConfig.DatabaseURL, logging.MapGormLevel(config.AppConfig.LogLevel))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	DB = db

	if err := AutoMigrate(DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := initRedis(); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	return nil
}

// Connect opens PostgreSQL for dsn, or the local SQLite file when dsn is empty
func Connect(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logging.NewGormLogger(logging.L(), logLevel),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	if dsn == "" {
		logging.Infof("Database URL not set, using SQLite for development")
		db, err = gorm.Open(sqlite.Open(SQLitePath), gormConfig)
	} else {
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Infof("Database connected successfully")
	return db, nil
}

// AutoMigrate creates the audit tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.SubmissionLog{})
}

// initRedis connects to Redis when REDIS_URL is set. Without it sessions
// and row markers stay in process memory.
func initRedis() error {
	redisURL := config.AppConfig.RedisURL
	if redisURL == "" {
		logging.Infof("Redis URL not set, keeping sessions and row locks in memory")
		return nil
	}

	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logging.Errorf("Failed to parse Redis URL: %v", err)
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logging.Errorf("Failed to connect to Redis: %v", err)
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	RedisClient = client
	logging.Infof("Redis connected successfully")
	return nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// GetDB returns database instance
func GetDB() *gorm.DB {
	return DB
}

// GetRedis returns the Redis client, nil when Redis is not configured
func GetRedis() *redis.Client {
	return RedisClient
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
