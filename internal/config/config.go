package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	MongoURI       string
	RedisAddr      string
	RabbitURL      string
	HTTPAddr       string
	OTLPEndpoint   string
	ReservationTTL time.Duration
	SeatLockTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	reservationTTL, _ := time.ParseDuration(os.Getenv("RESERVATION_TTL"))
	if reservationTTL == 0 {
		reservationTTL = 10 * time.Minute
	}

	seatLockTTL, _ := time.ParseDuration(os.Getenv("SEAT_LOCK_TTL"))
	if seatLockTTL == 0 {
		seatLockTTL = reservationTTL
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		HTTPAddr:       httpAddr,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ReservationTTL: reservationTTL,
		SeatLockTTL:    seatLockTTL,
	}, nil
}
