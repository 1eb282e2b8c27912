package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time provides duration types for TTLs and sweep intervals
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for TTLs
// and sweep cadences.
type Config struct {
	Env                  string        // application environment (e.g. "dev", "prod")
	Port                 string        // HTTP port to listen on
	DBUser               string        // database username
	DBPass               string        // database password (optional)
	DBHost               string        // database host address
	DBPort               string        // database port number
	DBName               string        // database name
	QueueTokenSecret     string        // secret used to sign queue bearer tokens
	QueueActiveCap       int           // maximum ACTIVE tokens per concert
	QueueActiveTTL       time.Duration // how long an ACTIVE token stays valid
	QueueMaxWait         time.Duration // how long a WAITING token may sit unpromoted
	QueuePromoteInterval time.Duration // cadence of the promotion sweep
	QueueExpireInterval  time.Duration // cadence of the stale-token sweep
	HoldTTL              time.Duration // how long an unpaid seat hold survives
	HoldSweepInterval    time.Duration // cadence of the overdue-hold sweep
	HoldSweepBatch       int           // maximum holds expired per sweep pass
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  TTLs and intervals
// have sensible defaults so a bare environment still boots.
func Load() Config {
	return Config{
		Env:                  must("APP_ENV"),                 // environment (dev/test/prod)
		Port:                 must("APP_PORT"),                // port to bind the HTTP server
		DBUser:               must("DB_USER"),                 // database user
		DBPass:               os.Getenv("DB_PASS"),            // database password (empty allowed)
		DBHost:               must("DB_HOST"),                 // database host
		DBPort:               must("DB_PORT"),                 // database port
		DBName:               must("DB_NAME"),                 // database name
		QueueTokenSecret:     must("QUEUE_TOKEN_SECRET"),      // secret for signing queue bearers
		QueueActiveCap:       intOr("QUEUE_ACTIVE_CAP", 50),   // admitted users per concert
		QueueActiveTTL:       durOr("QUEUE_ACTIVE_TTL", 10*time.Minute),
		QueueMaxWait:         durOr("QUEUE_MAX_WAIT", 30*time.Minute),
		QueuePromoteInterval: durOr("QUEUE_PROMOTE_INTERVAL", 3*time.Second),
		QueueExpireInterval:  durOr("QUEUE_EXPIRE_INTERVAL", 10*time.Second),
		HoldTTL:              durOr("HOLD_TTL", 5*time.Minute),
		HoldSweepInterval:    durOr("HOLD_SWEEP_INTERVAL", 10*time.Second),
		HoldSweepBatch:       intOr("HOLD_SWEEP_BATCH", 100),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr retrieves an integer environment variable, falling back to a
// default when unset.  Invalid values are fatal rather than silently
// ignored.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// durOr retrieves a duration environment variable (Go duration syntax,
// e.g. "5m" or "30s"), falling back to a default when unset.
func durOr(key string, def time.Duration) time.Duration {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}
