package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	FrontendURL    string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL string

	JWTSecret          string
	JWTTTL             time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	// AdminUIDs are made admins on start so a fresh deployment has someone
	// to approve requests.
	AdminUIDs []string

	JudgeURL     string
	JudgeTimeout time.Duration

	ClubTimezone        *time.Location
	AttendanceBonus     int
	AttendanceRetention time.Duration

	ResyncSchedule string
	PruneSchedule  string
	WorkspaceIdle  time.Duration
	SubmitLockTTL  time.Duration

	SubmitCooldown  time.Duration
	RequestCooldown time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),

		JWTSecret:          getEnv("JWT_SECRET", "change-me"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
		AdminUIDs:          splitList(os.Getenv("ADMIN_UIDS")),

		JudgeURL: getEnv("JUDGE_URL", "http://localhost:5000"),

		ResyncSchedule: getEnv("RESYNC_SCHEDULE", "@every 1m"),
		PruneSchedule:  getEnv("PRUNE_SCHEDULE", "@daily"),
	}

	var err error
	if cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.JudgeTimeout, err = parseDuration(getEnv("JUDGE_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid JUDGE_TIMEOUT: %w", err)
	}
	if cfg.AttendanceRetention, err = parseDuration(getEnv("ATTENDANCE_RETENTION", "0s")); err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_RETENTION: %w", err)
	}
	if cfg.WorkspaceIdle, err = parseDuration(getEnv("WORKSPACE_IDLE", "2h")); err != nil {
		return nil, fmt.Errorf("invalid WORKSPACE_IDLE: %w", err)
	}
	if cfg.SubmitLockTTL, err = parseDuration(getEnv("SUBMIT_LOCK_TTL", "2m")); err != nil {
		return nil, fmt.Errorf("invalid SUBMIT_LOCK_TTL: %w", err)
	}
	if cfg.SubmitCooldown, err = parseDuration(getEnv("RATE_LIMIT_SUBMIT", "5s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SUBMIT: %w", err)
	}
	if cfg.RequestCooldown, err = parseDuration(getEnv("RATE_LIMIT_REQUEST", "30s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUEST: %w", err)
	}

	if cfg.AttendanceBonus, err = strconv.Atoi(getEnv("ATTENDANCE_BONUS", "50")); err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_BONUS: %w", err)
	}

	if cfg.ClubTimezone, err = time.LoadLocation(getEnv("CLUB_TIMEZONE", "America/New_York")); err != nil {
		return nil, fmt.Errorf("invalid CLUB_TIMEZONE: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
