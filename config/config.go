package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	SYMBOL=000300
//	PROVIDER_BASE_URL=https://push2his.eastmoney.com
//	PROVIDER_TIMEOUT_SECONDS=30
//	FETCH_TIMEOUT_SECONDS=60
//	MAX_PARALLEL_FETCHES=4
//	REFRESH_CRON=*/15 9-15 * * 1-5
//	CHART_DIR=./charts
type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Fetch    FetchConfig
	Chart    ChartConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// ProviderConfig selects and tunes the upstream market-data source.
type ProviderConfig struct {
	BaseURL string        // empty means the public endpoint
	Timeout time.Duration // per-request HTTP timeout
}

// FetchConfig tunes the scenario scheduler.
type FetchConfig struct {
	Symbol      string        // default index symbol for preset scenarios
	Timeout     time.Duration // end-to-end budget for one fetch task
	MaxParallel int64         // concurrent fetch workers
	RefreshCron string        // optional cron spec for periodic refresh
}

// ChartConfig controls where rendered artifacts land.
type ChartConfig struct {
	Dir string
}

// AppConfig is the globally accessible configuration instance, populated
// once via LoadConfig().
var AppConfig Config

// LoadConfig initializes AppConfig. Precedence, lowest to highest:
// defaults, .env file (if present), environment variables.
//
// If required values end up missing, validateConfig terminates the app
// with a descriptive message.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SYMBOL", "000300")
	viper.SetDefault("PROVIDER_BASE_URL", "")
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 30)
	viper.SetDefault("FETCH_TIMEOUT_SECONDS", 60)
	viper.SetDefault("MAX_PARALLEL_FETCHES", 4)
	viper.SetDefault("REFRESH_CRON", "")
	viper.SetDefault("CHART_DIR", "./charts")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Provider: ProviderConfig{
			BaseURL: viper.GetString("PROVIDER_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("PROVIDER_TIMEOUT_SECONDS")) * time.Second,
		},
		Fetch: FetchConfig{
			Symbol:      viper.GetString("SYMBOL"),
			Timeout:     time.Duration(viper.GetInt("FETCH_TIMEOUT_SECONDS")) * time.Second,
			MaxParallel: viper.GetInt64("MAX_PARALLEL_FETCHES"),
			RefreshCron: viper.GetString("REFRESH_CRON"),
		},
		Chart: ChartConfig{
			Dir: viper.GetString("CHART_DIR"),
		},
	}

	validateConfig()
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing, avoiding surprise runtime failures
// from incomplete configuration.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Fetch.Symbol == "" {
		missing = append(missing, "SYMBOL")
	}
	if AppConfig.Fetch.Timeout <= 0 {
		missing = append(missing, "FETCH_TIMEOUT_SECONDS")
	}
	if AppConfig.Fetch.MaxParallel <= 0 {
		missing = append(missing, "MAX_PARALLEL_FETCHES")
	}
	if AppConfig.Chart.Dir == "" {
		missing = append(missing, "CHART_DIR")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
