package utils

import (
	"os"
)

// Config carries the process-wide settings services need. It is loaded
// once in main and passed to constructors so tests can substitute fakes
// instead of reading the environment.
type Config struct {
	Port string

	// Mobile-money gateway
	GatewayBaseURL string
	GatewayAPIKey  string

	// Expo-compatible push endpoint
	PushURL string

	// Shared secret for the scheduler sweep endpoint. Empty disables the
	// header check (local development).
	SweepSecret string

	// Cron spec for the in-process sweep cadence.
	SweepCron string
}

func LoadConfig() Config {
	cfg := Config{
		Port:           os.Getenv("PORT"),
		GatewayBaseURL: os.Getenv("PAYMENT_GATEWAY_URL"),
		GatewayAPIKey:  os.Getenv("PAYMENT_GATEWAY_API_KEY"),
		PushURL:        os.Getenv("PUSH_API_URL"),
		SweepSecret:    os.Getenv("SWEEP_SECRET"),
		SweepCron:      os.Getenv("SWEEP_CRON"),
	}

	if cfg.Port == "" {
		cfg.Port = "4000"
	}
	if cfg.PushURL == "" {
		cfg.PushURL = "https://exp.host/--/api/v2/push/send"
	}
	if cfg.SweepCron == "" {
		cfg.SweepCron = "0 * * * *" // hourly
	}

	return cfg
}
