package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types

    "github.com/joho/godotenv" // optional .env file for local development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Sub-configurations with their own defaults
// (sessions, Redis, rate limiting, caching, AMQP) live in sibling files.
type Config struct {
    Env         string // application environment (e.g. "dev", "prod")
    Port        string // HTTP port to listen on
    LogLevel    string // zerolog level name
    DBUser      string // database username
    DBPass      string // database password (optional)
    DBHost      string // database host address
    DBPort      string // database port number
    DBName      string // database name
    AutoMigrate bool   // apply embedded migrations on startup
    ResetSecret string // HMAC secret used to sign password reset links
    BcryptCost  int    // bcrypt cost for password hashing
    BaseURL     string // public URL used when building links in emails
    Session     SessionConfig
    AMQP        AMQPConfig
    Bootstrap   BootstrapConfig
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first if present;
// variables already set in the environment win.  Required variables are
// enforced by must() and missing values cause the program to exit.
func Load() Config {
    _ = godotenv.Load() // missing .env is fine outside development

    return Config{
        Env:         must("APP_ENV"),                        // environment (dev/test/prod)
        Port:        must("APP_PORT"),                       // port to bind the HTTP server
        LogLevel:    envStr("LOG_LEVEL", "info"),             // log verbosity
        DBUser:      must("DB_USER"),                        // database user
        DBPass:      os.Getenv("DB_PASS"),                   // database password (empty allowed)
        DBHost:      must("DB_HOST"),                        // database host
        DBPort:      must("DB_PORT"),                        // database port
        DBName:      must("DB_NAME"),                        // database name
        AutoMigrate: envBool("DB_AUTO_MIGRATE", true),       // run goose migrations at boot
        ResetSecret: must("RESET_TOKEN_SECRET"),             // secret for reset-link JWTs
        BcryptCost:  mustInt("BCRYPT_COST"),                 // bcrypt cost factor
        BaseURL:     envStr("APP_BASE_URL", "http://localhost:8080"),
        Session:     LoadSessionConfig(),
        AMQP:        LoadAMQPConfig(),
        Bootstrap:   LoadBootstrapConfig(),
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
