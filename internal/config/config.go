package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OneBot OneBotConfig
	Web    WebConfig
	Plugin PluginConfig
	Redis  RedisConfig
}

type OneBotConfig struct {
	URL            string
	AccessToken    string
	ReconnectDelay time.Duration
	APITimeout     time.Duration
}

type WebConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PluginConfig struct {
	// BaseDir holds the bundled assets (hymb.png, FZSTK.TTF) and the
	// temp_images scratch directory.
	BaseDir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		OneBot: OneBotConfig{
			URL:            getEnv("ONEBOT_WS_URL", "ws://127.0.0.1:6700"),
			AccessToken:    getEnv("ONEBOT_ACCESS_TOKEN", ""),
			ReconnectDelay: getDuration("ONEBOT_RECONNECT_DELAY", 5*time.Second),
			APITimeout:     getDuration("ONEBOT_API_TIMEOUT", 10*time.Second),
		},
		Web: WebConfig{
			Addr:         getEnv("DEBUG_HTTP_ADDR", ""), // empty disables the debug server
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
		},
		Plugin: PluginConfig{
			BaseDir: getEnv("PLUGIN_DATA_DIR", "."),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""), // empty keeps the in-memory pointer store
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
