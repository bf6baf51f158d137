package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abarreto/stagevote/internal/app"
	"github.com/abarreto/stagevote/internal/auth"
	"github.com/abarreto/stagevote/internal/config"
	"github.com/abarreto/stagevote/internal/logger"
)

var version = "dev"

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.Addr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	operatorPw := flag.String("operatorpw", cfg.OperatorPassword, "Operator password (auto-generated if not set)")
	logLevel := flag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `StageVote - Live Singing Contest Voting

Usage:
  stagevote [options]

Options:
  -addr string      HTTP listen address (default ":8080")
  -db string        SQLite database path (default "stagevote.db")
  -operatorpw str   Operator password (auto-generated if not set)
  -loglevel str     Log level: debug, info, warn, error (default "info")
  -version          Show version and exit
  -help             Show this help message

Environment:
  STAGEVOTE_ADDR, STAGEVOTE_DB, STAGEVOTE_LOG_LEVEL, STAGEVOTE_SESSION,
  STAGEVOTE_OPERATOR_PASSWORD, STAGEVOTE_FINGERPRINT_SALT
  (a .env file in the working directory is honored)

Examples:
  stagevote                          # Run on :8080 with stagevote.db
  stagevote -addr :80 -db show.db    # Production example
  stagevote -operatorpw secret123    # Use specific operator password

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("stagevote %s\n", version)
		os.Exit(0)
	}

	// Setup operator authentication
	password := *operatorPw
	if password == "" {
		password = auth.GeneratePassword()
	}
	operatorAuth := auth.New(password)

	appLog := logger.NewWithLevel(logger.ParseLevel(*logLevel))

	a, err := app.New(appLog, *dbPath, cfg.FingerprintSalt, cfg.SessionID, operatorAuth)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	appLog.Info("Operator password", "password", password)

	if err := a.Run(*addr); err != nil {
		log.Fatal(err)
	}
}
