package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iwvelando/loan-qualifier/internal/cache"
	"github.com/iwvelando/loan-qualifier/internal/config"
	"github.com/iwvelando/loan-qualifier/internal/metrics"
	"github.com/iwvelando/loan-qualifier/internal/prompt"
	"github.com/iwvelando/loan-qualifier/internal/qualifier"
	"github.com/iwvelando/loan-qualifier/internal/server"
	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"github.com/iwvelando/loan-qualifier/pkg/loans"
	"github.com/iwvelando/loan-qualifier/pkg/output"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
	"github.com/iwvelando/loan-qualifier/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// applicantFlagNames are the flags that together describe an applicant.
var applicantFlagNames = []string{"credit-score", "debt", "income", "loan", "home-value"}

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// applicantFromFlags returns the applicant described on the command line. ok
// is false when none of the applicant flags were given.
func applicantFromFlags(set map[string]bool, creditScore int, debt, income, loan, homeValue float64) (qualifier.Applicant, bool, error) {
	var missing []string
	for _, name := range applicantFlagNames {
		if !set[name] {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) == len(applicantFlagNames) {
		return qualifier.Applicant{}, false, nil
	}
	if len(missing) > 0 {
		return qualifier.Applicant{}, false, fmt.Errorf("missing applicant flags: %v", missing)
	}

	return qualifier.Applicant{
		CreditScore:   creditScore,
		MonthlyDebt:   debt,
		MonthlyIncome: income,
		LoanAmount:    loan,
		HomeValue:     homeValue,
	}, true, nil
}

// validateApplicant rejects figures that can never qualify. Income and home
// value are left to the ratio calculators.
func validateApplicant(applicant qualifier.Applicant) error {
	if err := validation.ValidateCreditScore(applicant.CreditScore); err != nil {
		return err
	}
	if err := validation.ValidateAmount("monthly debt", applicant.MonthlyDebt, true); err != nil {
		return err
	}
	return validation.ValidateAmount("loan amount", applicant.LoanAmount, true)
}

func saveOffers(logger *zap.Logger, path string, offers []ratesheet.Offer) error {
	if len(offers) == 0 {
		fmt.Println(constants.NoQualifyingLoansMessage)
		return nil
	}
	if err := validation.ValidateSavePath(path); err != nil {
		return err
	}
	if err := ratesheet.Save(path, offers); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("saved %d qualifying loans to %s", len(offers), path),
		zap.String("op", "main"),
	)
	return nil
}

func runServer(logger *zap.Logger, conf *config.Configuration, serverConfigPath, rateSheetOverride, logLevelOverride string) error {
	serverConfig, err := server.LoadConfig(serverConfigPath)
	if err != nil {
		return err
	}

	if serverConfig.Logging != (config.LoggingConfig{}) {
		serverLogger, err := initializeLogger(serverConfig.Logging, logLevelOverride)
		if err != nil {
			return err
		}
		defer func() {
			_ = serverLogger.Sync()
		}()
		logger = serverLogger
	}

	rateSheetPath := serverConfig.RateSheet
	if rateSheetOverride != "" {
		rateSheetPath = rateSheetOverride
	}
	offers, err := ratesheet.Load(rateSheetPath)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("loaded %d offers from %s", len(offers), rateSheetPath),
		zap.String("op", "main.runServer"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheConfig := serverConfig.Cache
	if !cacheConfig.Enabled && conf.Cache.Enabled {
		cacheConfig = conf.Cache
	}
	resultCache, closeCache, err := cache.FromConfig(ctx, logger, cacheConfig)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeCache()
	}()

	handler := server.NewHandler(logger, server.Options{
		Offers:         offers,
		Cache:          resultCache,
		Metrics:        metrics.New(),
		MaxRequestSize: serverConfig.RequestSizeBytes(),
		Version:        version,
	})

	return server.ListenAndServe(ctx, logger, serverConfig.Address, handler)
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	envFile := flag.String("env-file", constants.DefaultEnvFile, "path to an optional .env file")
	rateSheetFlag := flag.String("rate-sheet", "", "path to the rate sheet csv (overrides config)")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	serve := flag.Bool("serve", false, "serve the qualification API over HTTP")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to the server configuration file")
	creditScore := flag.Int("credit-score", 0, "applicant credit score")
	debt := flag.Float64("debt", 0, "applicant monthly debt")
	income := flag.Float64("income", 0, "applicant monthly income")
	loan := flag.Float64("loan", 0, "requested loan amount")
	homeValue := flag.Float64("home-value", 0, "value of the home being purchased")
	savePath := flag.String("save", "", "save qualifying loans to this .csv file instead of printing them")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file at %s\", \"error\": \"%v\"}\n", *envFile, err)
		os.Exit(1)
	}

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	if *outputFormatFlag != "" {
		conf.Output.Format = *outputFormatFlag
	}
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}

	warnings, err := conf.ValidateConfiguration()
	if err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	if *serve {
		if err := runServer(logger, conf, *serverConfigLocation, *rateSheetFlag, *logLevel); err != nil {
			logger.Fatal("server failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		return
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	applicant, fromFlags, err := applicantFromFlags(set, *creditScore, *debt, *income, *loan, *homeValue)
	if err != nil {
		logger.Fatal("incomplete applicant",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	interactive := !fromFlags
	prompter := prompt.New(logger, os.Stdin, os.Stdout)

	rateSheetPath := conf.RateSheet
	if *rateSheetFlag != "" {
		rateSheetPath = *rateSheetFlag
	}
	if rateSheetPath == "" {
		if !interactive {
			logger.Fatal("no rate sheet configured", zap.String("op", "main"))
		}
		if rateSheetPath, err = prompter.RateSheetPath(); err != nil {
			logger.Fatal("failed to read rate sheet path",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	offers, err := ratesheet.Load(rateSheetPath)
	if err != nil {
		logger.Fatal("failed to load rate sheet",
			zap.String("op", "main"),
			zap.String("path", rateSheetPath),
			zap.Error(err),
		)
	}

	if interactive {
		if applicant, err = prompter.ApplicantInfo(); err != nil {
			logger.Fatal("failed to read applicant",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	if err := validateApplicant(applicant); err != nil {
		logger.Fatal("invalid applicant",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	for _, warning := range validation.ApplicantWarnings(applicant.CreditScore, applicant.LoanAmount, applicant.HomeValue) {
		logger.Warn("Applicant warning: "+warning,
			zap.String("op", "main"),
		)
	}

	result, err := qualifier.Qualify(logger, offers, applicant)
	if err != nil {
		logger.Fatal("failed to qualify applicant",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	output.Summary(os.Stdout, result)

	// Handle output.
	switch {
	case *savePath != "":
		err = saveOffers(logger, *savePath, result.Offers)
	case interactive && conf.Output.Format == constants.OutputFormatPretty:
		_, err = prompter.SaveDialog(result.Offers)
	case conf.Output.Format == constants.OutputFormatCSV:
		err = output.CsvFormat(os.Stdout, result.Offers)
	default:
		output.PrettyFormat(os.Stdout, result.Offers)
	}
	if err != nil && !errors.Is(err, prompt.ErrNoInput) {
		logger.Fatal("failed to write qualifying loans",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if *savePath == "" && conf.Output.Format == constants.OutputFormatPretty {
		output.PaymentEstimates(os.Stdout, loans.EstimateOffers(result.Offers, applicant.LoanAmount, constants.DefaultTermMonths))
	}
}
