package config

import (
	"fmt"
	"os"
)

// const dsn = "host=localhost user=postgres password=password dbname=cabindb port=5432 sslmode=disable TimeZone=America/Denver"

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

// Reservations are calendar dates, not instants. Comparison is lexicographic on the
// fixed-width ISO form, so no timezone handling happens anywhere in the date path.
const DATE_PARSE_FORMAT = "2006-01-02"

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05"

var (
	API_ENV             = os.Getenv("API_ENV")
	API_DOMAIN          = os.Getenv("API_DOMAIN")
	API_HOST            = os.Getenv("API_HOST")
	APP_HOST            = os.Getenv("APP_HOST")
	API_SECRET          = os.Getenv("API_SECRET")
	SMTP_FROM           = os.Getenv("SMTP_FROM")
	OAUTH_CLIENT_ID     = os.Getenv("OAUTH_CLIENT_ID")
	OAUTH_CLIENT_SECRET = os.Getenv("OAUTH_CLIENT_SECRET")
)
