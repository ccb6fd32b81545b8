package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" choice:"sqlite" choice:"postgres" description:"Storage backend"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./newshound.db" description:"SQLite database file path"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Postgres host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Postgres port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"newshound" description:"Postgres user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"Postgres password"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"newshound" description:"Postgres database name"`

	// Scraping configuration
	SourcesFile          string `long:"sources-file" env:"SOURCES_FILE" description:"YAML file with feed sources (built-in list used when empty)"`
	ScrapeInterval       int    `long:"scrape-interval" env:"SCRAPE_INTERVAL" default:"30" description:"Minutes between scrape cycles"`
	CycleTimeout         int    `long:"cycle-timeout" env:"CYCLE_TIMEOUT" default:"600" description:"Maximum seconds for one scrape cycle (0 disables)"`
	WorkerCount          int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Concurrent feed fetches per cycle"`
	FetchRetries         int    `long:"fetch-retries" env:"FETCH_RETRIES" default:"3" description:"Fetch attempts per feed before giving up"`
	FetchRetryDelay      int    `long:"fetch-retry-delay" env:"FETCH_RETRY_DELAY" default:"2" description:"Base retry delay in seconds (multiplied by attempt number)"`
	MaxAgeMinutes        int    `long:"max-age" env:"MAX_AGE_MINUTES" default:"1440" description:"Maximum article age in minutes"`
	IncludeUndated       bool   `long:"include-undated" env:"INCLUDE_UNDATED" description:"Keep items whose publication date is missing or unparsable"`
	MaxConsecutiveErrors int    `long:"max-consecutive-errors" env:"MAX_CONSECUTIVE_ERRORS" default:"5" description:"Consecutive failed cycles before the process gives up"`

	// Kafka configuration (optional)
	KafkaBrokers string `long:"kafka-brokers" env:"KAFKA_BROKERS" description:"Comma-separated Kafka brokers for new-article announcements (disabled when empty)"`
	KafkaTopic   string `long:"kafka-topic" env:"KAFKA_TOPIC" default:"newshound.articles" description:"Kafka topic for new-article announcements"`

	// Application configuration
	Port      string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Newshound/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:             raw.DBDriver,
		DBPath:               raw.DBPath,
		DBHost:               raw.DBHost,
		DBPort:               raw.DBPort,
		DBUser:               raw.DBUser,
		DBPassword:           raw.DBPassword,
		DBName:               raw.DBName,
		SourcesFile:          raw.SourcesFile,
		ScrapeInterval:       raw.ScrapeInterval,
		CycleTimeout:         raw.CycleTimeout,
		WorkerCount:          raw.WorkerCount,
		FetchRetries:         raw.FetchRetries,
		FetchRetryDelay:      raw.FetchRetryDelay,
		MaxAgeMinutes:        raw.MaxAgeMinutes,
		IncludeUndated:       raw.IncludeUndated,
		MaxConsecutiveErrors: raw.MaxConsecutiveErrors,
		KafkaBrokers:         raw.KafkaBrokers,
		KafkaTopic:           raw.KafkaTopic,
		Port:                 raw.Port,
		UserAgent:            raw.UserAgent,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
