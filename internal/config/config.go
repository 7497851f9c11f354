package config

import (
	"os"
	"strconv"
	"time"
)

// Config collects everything the service reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	PaystackSecretKey string
	GatewayTimeout    time.Duration
	CallbackBaseURL   string

	ResendAPIKey string
	FromEmail    string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// Platform fee percentages. Land purchases and professional services
	// carry distinct rates.
	LandFeePercent    float64
	ServiceFeePercent float64
}

func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		GatewayTimeout:    getEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
		CallbackBaseURL:   getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		FromEmail:    getEnv("FROM_EMAIL", "onboarding@resend.dev"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		LandFeePercent:    getEnvFloat("LAND_FEE_PERCENT", 2.5),
		ServiceFeePercent: getEnvFloat("SERVICE_FEE_PERCENT", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
