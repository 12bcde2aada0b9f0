package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	BackendBaseURL string
	RequestTimeout time.Duration

	// Refresh
	RefreshInterval time.Duration

	// Offline cache
	AssetVersion string

	// Local state
	DataDir string

	// Gateway
	GatewayPort string
	PageOrigin  string

	// OTP throttle
	OTPSendPerMinute int

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BackendBaseURL = os.Getenv("BACKEND_BASE_URL")
	if cfg.BackendBaseURL == "" {
		missing = append(missing, "BACKEND_BASE_URL")
	}

	cfg.AssetVersion = os.Getenv("ASSET_VERSION")
	if cfg.AssetVersion == "" {
		missing = append(missing, "ASSET_VERSION")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 5*time.Minute)
	cfg.DataDir = getEnvString("DATA_DIR", defaultDataDir())
	cfg.GatewayPort = getEnvString("GATEWAY_PORT", "8080")
	cfg.PageOrigin = getEnvString("PAGE_ORIGIN", "http://localhost:3000")
	cfg.OTPSendPerMinute = getEnvInt("OTP_SEND_PER_MIN", 3)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// defaultDataDir は端末ローカル状態の既定の置き場所を返す。
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".phillycal"
	}
	return filepath.Join(home, ".phillycal")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
