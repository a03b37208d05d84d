// Package server exposes the qualification pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/loan-qualifier/internal/cache"
	"github.com/iwvelando/loan-qualifier/internal/metrics"
	"github.com/iwvelando/loan-qualifier/internal/qualifier"
	"github.com/iwvelando/loan-qualifier/pkg/constants"
	"github.com/iwvelando/loan-qualifier/pkg/loans"
	"github.com/iwvelando/loan-qualifier/pkg/output"
	"github.com/iwvelando/loan-qualifier/pkg/ratesheet"
	"github.com/iwvelando/loan-qualifier/pkg/ratios"
	"github.com/iwvelando/loan-qualifier/pkg/validation"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// applicantSchema constrains the /api/qualify body. Income and home value
// carry no minimum here; non-positive values are rejected by the ratio
// calculators so the error names the ratio that could not be computed.
var applicantSchema = gojsonschema.NewStringLoader(`{
  "type": "object",
  "properties": {
    "creditScore":   {"type": "integer", "minimum": 1, "maximum": 2147483647},
    "monthlyDebt":   {"type": "number", "minimum": 0},
    "monthlyIncome": {"type": "number"},
    "loanAmount":    {"type": "number", "minimum": 0},
    "homeValue":     {"type": "number"}
  },
  "required": ["creditScore", "monthlyDebt", "monthlyIncome", "loanAmount", "homeValue"],
  "additionalProperties": false
}`)

// Options configures the handler.
type Options struct {
	Offers         []ratesheet.Offer
	Cache          *cache.ResultCache
	Metrics        *metrics.Metrics
	MaxRequestSize int64
	Version        string
	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

type handler struct {
	logger         *zap.Logger
	offers         []ratesheet.Offer
	fingerprint    string
	cache          *cache.ResultCache
	metrics        *metrics.Metrics
	maxRequestSize int64
	version        string
	tracer         trace.Tracer
}

// NewHandler constructs the HTTP handler that serves the qualification API.
// The offers are treated as read-only and shared by all requests.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxRequestSize := opts.MaxRequestSize
	if maxRequestSize <= 0 {
		maxRequestSize = constants.DefaultMaxRequestSizeBytes
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	offers := opts.Offers
	if offers == nil {
		offers = []ratesheet.Offer{}
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	m.RateSheet.Set(float64(len(offers)))

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/iwvelando/loan-qualifier/internal/server")
	}

	h := &handler{
		logger:         logger,
		offers:         offers,
		fingerprint:    cache.Fingerprint(offers),
		cache:          opts.Cache,
		metrics:        m,
		maxRequestSize: maxRequestSize,
		version:        version,
		tracer:         tracer,
	}

	mux := http.NewServeMux()

	// Qualification endpoint
	mux.HandleFunc("/api/qualify", h.handleQualify)

	// Loaded rate sheet, as json, yaml or csv
	mux.HandleFunc("/api/ratesheet", h.handleRateSheet)

	mux.HandleFunc("/api/version", h.handleVersion)

	mux.Handle("/metrics", m.Handler())

	return mux
}

type qualifyResponse struct {
	RunID     string                 `json:"runId"`
	Ratios    qualifier.Ratios       `json:"ratios"`
	Stages    []qualifier.StageCount `json:"stages"`
	Offers    []ratesheet.Offer      `json:"offers"`
	Estimates []loans.Estimate       `json:"estimates"`
	CSV       string                 `json:"csv"`
	Message   string                 `json:"message,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
	Cached    bool                   `json:"cached"`
	Duration  string                 `json:"duration"`
}

func (h *handler) handleQualify(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleQualify"

	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	runID := uuid.New().String()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxRequestSize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxRequestSize), op, runID)
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op, runID)
		return
	}

	applicant, err := decodeApplicant(body)
	if err != nil {
		h.metrics.ObserveOutcome(metrics.OutcomeInvalid)
		h.respondError(w, http.StatusBadRequest, err.Error(), op, runID)
		return
	}

	response := qualifyResponse{
		RunID:    runID,
		Warnings: validation.ApplicantWarnings(applicant.CreditScore, applicant.LoanAmount, applicant.HomeValue),
	}

	ctx, span := h.tracer.Start(r.Context(), "qualify",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	result, cached, err := h.qualify(ctx, applicant)
	span.SetAttributes(attribute.Bool("cache.hit", cached))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.metrics.ObserveOutcome(metrics.OutcomeInvalid)
		status := http.StatusInternalServerError
		if errors.Is(err, ratios.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		h.respondError(w, status, err.Error(), op, runID)
		return
	}

	elapsed := time.Since(start)
	if cached {
		h.metrics.ObserveOutcome(metrics.OutcomeCached)
	} else {
		h.metrics.ObserveResult(result, elapsed)
	}

	span.SetAttributes(attribute.Int("offers.qualifying", len(result.Offers)))

	response.Ratios = result.Ratios
	response.Stages = result.Stages
	response.Offers = result.Offers
	response.Estimates = loans.EstimateOffers(result.Offers, applicant.LoanAmount, constants.DefaultTermMonths)
	response.CSV = output.CsvString(result.Offers)
	response.Cached = cached
	response.Duration = elapsed.String()
	if len(result.Offers) == 0 {
		response.Message = constants.NoQualifyingLoansMessage
	}

	h.logger.Info("qualification computed",
		zap.String("op", op),
		zap.String("runId", runID),
		zap.Int("offers", len(h.offers)),
		zap.Int("qualifying", len(result.Offers)),
		zap.Bool("cached", cached),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) qualify(ctx context.Context, applicant qualifier.Applicant) (qualifier.Result, bool, error) {
	if h.cache == nil {
		result, err := qualifier.Qualify(h.logger, h.offers, applicant)
		return result, false, err
	}

	key := cache.Key(h.fingerprint, applicant)
	if result, ok := h.cache.Lookup(ctx, key); ok {
		return result, true, nil
	}

	result, err := qualifier.Qualify(h.logger, h.offers, applicant)
	if err != nil {
		return result, false, err
	}
	h.cache.Store(ctx, key, result)
	return result, false, nil
}

// applicantRequest is the wire form of an applicant. The schema accepts any
// integer-valued number for creditScore, including 700.0, so it is decoded
// as a json.Number rather than straight into an int.
type applicantRequest struct {
	CreditScore   json.Number `json:"creditScore"`
	MonthlyDebt   float64     `json:"monthlyDebt"`
	MonthlyIncome float64     `json:"monthlyIncome"`
	LoanAmount    float64     `json:"loanAmount"`
	HomeValue     float64     `json:"homeValue"`
}

func decodeApplicant(body []byte) (qualifier.Applicant, error) {
	var applicant qualifier.Applicant

	validationResult, err := gojsonschema.Validate(applicantSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return applicant, fmt.Errorf("failed to decode applicant: %v", err)
	}
	if !validationResult.Valid() {
		errs := make([]string, len(validationResult.Errors()))
		for i, desc := range validationResult.Errors() {
			errs[i] = desc.String()
		}
		return applicant, fmt.Errorf("applicant validation failed: %s", strings.Join(errs, "; "))
	}

	var req applicantRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return applicant, fmt.Errorf("failed to decode applicant: %v", err)
	}
	score, err := req.CreditScore.Float64()
	if err != nil || score != math.Trunc(score) || score > math.MaxInt32 {
		return applicant, fmt.Errorf("failed to decode applicant: creditScore %s is not a whole number", req.CreditScore)
	}

	applicant = qualifier.Applicant{
		CreditScore:   int(score),
		MonthlyDebt:   req.MonthlyDebt,
		MonthlyIncome: req.MonthlyIncome,
		LoanAmount:    req.LoanAmount,
		HomeValue:     req.HomeValue,
	}
	return applicant, nil
}

func (h *handler) handleRateSheet(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRateSheet"

	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"offers": h.offers,
		})
	case "yaml":
		data, err := yaml.Marshal(map[string]interface{}{"offers": h.offers})
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode rate sheet: %v", err), op, "")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case constants.OutputFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := output.CsvFormat(w, h.offers); err != nil {
			h.logger.Error("failed to write rate sheet", zap.String("op", op), zap.Error(err))
		}
	default:
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format), op, "")
	}
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string, runID string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("runId", runID),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	payload := map[string]string{"error": msg}
	if runID != "" {
		payload["runId"] = runID
	}
	h.writeJSON(w, status, payload)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// ListenAndServe runs handler on address until ctx is cancelled, then shuts
// the server down gracefully.
func ListenAndServe(ctx context.Context, logger *zap.Logger, address string, handler http.Handler) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:         address,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("op", "server.ListenAndServe"), zap.String("address", address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("shutting down", zap.String("op", "server.ListenAndServe"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
