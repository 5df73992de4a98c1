package app

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"library-lending/db"
	"library-lending/session"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Config Config

	appSess *session.AppSessionStore
}

// Config 从环境变量读取
type Config struct {
	RedisAddr  string
	RedisPwd   string
	WebOrigin  string
	JWTSecret  string
	SessionTTL time.Duration

	AdminEmail    string
	AdminPassword string
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

func MustNew() *App {
	cfg := loadConfig()

	// --- DB: Postgres ---
	dbConn := db.ConnectDB()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	registerValidators()

	return &App{
		Router: r, DB: dbConn, RDB: rdb, Config: cfg,
		appSess: session.NewAppSessionStore(rdb, cfg.SessionTTL),
	}
}

func (a *App) Close() { _ = a.RDB.Close() }

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}

	ttl := 24 * time.Hour
	if d, err := time.ParseDuration(get("SESSION_TTL", "24h")); err == nil {
		ttl = d
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	return Config{
		RedisAddr:  get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:   os.Getenv("REDIS_PASSWORD"),
		WebOrigin:  get("WEB_ORIGIN", "http://localhost:3000"),
		JWTSecret:  secret,
		SessionTTL: ttl,

		AdminEmail:    get("ADMIN_EMAIL", "admin@library.com"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}
