package cfg

type Cfg struct {
	// Database configuration
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Scraping configuration
	SourcesFile          string
	ScrapeInterval       int // minutes
	CycleTimeout         int // seconds, 0 disables the cycle deadline
	WorkerCount          int
	FetchRetries         int
	FetchRetryDelay      int // seconds, base of the backoff ladder
	MaxAgeMinutes        int
	IncludeUndated       bool
	MaxConsecutiveErrors int

	// Kafka configuration (optional)
	KafkaBrokers string
	KafkaTopic   string

	// Application configuration
	Port      string
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
