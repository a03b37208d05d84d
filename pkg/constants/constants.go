// Package constants provides shared constants for the loan-qualifier application.
package constants

// Rate sheet layout
const (
	// RateSheetColumns is the number of fields in every rate sheet row.
	RateSheetColumns = 6

	// DefaultRateSheetFile is used when neither the config nor the CLI names one.
	DefaultRateSheetFile = "data/daily_rate_sheet.csv"
)

// RateSheetHeader is the column order of rate sheet input and of every export.
var RateSheetHeader = []string{
	"Lender",
	"Max Loan Amount",
	"Max LTV",
	"Max DTI",
	"Min Credit Score",
	"Interest Rate",
}

// Financial constants
const (
	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// MonthsPerYear converts annual interest rates to monthly ones
	MonthsPerYear = 12.0

	// DefaultTermMonths is the loan term used for payment estimates
	DefaultTermMonths = 360
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultEnvFile is loaded before the configuration when present.
	DefaultEnvFile = ".env"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes is the default maximum request body size (64 KB)
	DefaultMaxRequestSizeBytes int64 = 64 * 1024
)

// Cache defaults
const (
	// DefaultCacheAddress is the default redis address for the result cache.
	DefaultCacheAddress = "localhost:6379"

	// DefaultCacheTTL is how long a cached qualification result is reused.
	DefaultCacheTTL = "10m"

	// DefaultMemoryCacheEntries caps the in-memory fallback cache.
	DefaultMemoryCacheEntries = 10000

	// CacheKeyPrefix namespaces cached qualification results in redis.
	CacheKeyPrefix = "loan-qualifier:result:"
)

// NoQualifyingLoansMessage is shown when a run produces no qualifying offers.
const NoQualifyingLoansMessage = "You do not currently qualify for any available loans."
