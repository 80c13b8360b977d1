package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	DatabaseURL   string
	NatsURL       string
	NatsToken     string
	LogLevel      string
	TwilioSID     string
	TwilioToken   string
	FromNumber    string
	OperatorPhone string
	CalendarLink  string
	TickInterval  time.Duration
	GraceWindow   time.Duration
}

func Load() Config {
	return Config{
		Port:          envInt("CALLBACK_PORT", 8760),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		TwilioSID:     envStr("TWILIO_ACCOUNT_SID", ""),
		TwilioToken:   envStr("TWILIO_AUTH_TOKEN", ""),
		FromNumber:    envStr("TWILIO_FROM_NUMBER", ""),
		OperatorPhone: envStr("OPERATOR_PHONE", ""),
		CalendarLink:  envStr("CALENDAR_LINK", "https://calendly.com/mikesquared/intro"),
		TickInterval:  envDuration("CALLBACK_TICK_INTERVAL", 5*time.Minute),
		GraceWindow:   envDuration("CALLBACK_GRACE_WINDOW", time.Hour),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
