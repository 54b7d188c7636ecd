// Package handlers provides HTTP handlers for investment calculation
// endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fincalc/internal/domain"
	"github.com/aristath/fincalc/internal/modules/calculator"
	"github.com/aristath/fincalc/internal/modules/charts"
)

const dateLayout = "2006-01-02"

// maxTickerLength bounds user-supplied ticker strings.
const maxTickerLength = 20

// calculationService is the slice of the calculator service the handlers
// need.
type calculationService interface {
	CalculateAllStrategies(ctx context.Context, req calculator.Request) (*calculator.ComparisonPayload, error)
	CompareDCA(ctx context.Context, tickers []string, amount float64, frequency string, start, end time.Time) (*calculator.MultiComparison, error)
}

// statusProvider reports local data coverage per instrument.
type statusProvider interface {
	InstrumentStatuses(catalogue []domain.Instrument) ([]domain.InstrumentStatus, error)
}

// Handler provides HTTP handlers for the investment endpoints.
type Handler struct {
	service     calculationService
	prices      domain.PriceStore
	statuses    statusProvider
	instruments []domain.Instrument
	log         zerolog.Logger
}

// NewHandler creates a new investment handler.
func NewHandler(
	service calculationService,
	prices domain.PriceStore,
	statuses statusProvider,
	instruments []domain.Instrument,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:     service,
		prices:      prices,
		statuses:    statuses,
		instruments: instruments,
		log:         log.With().Str("component", "investment_handlers").Logger(),
	}
}

// RegisterRoutes registers all investment routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/investment", func(r chi.Router) {
		r.Post("/calculate", h.HandleCalculate)
		r.Post("/compare", h.HandleCompare)
		r.Get("/instruments", h.HandleInstruments)
		r.Get("/chart/{ticker}", h.HandleChart)
	})
}

// calculateRequest is the wire form of a calculation request.
type calculateRequest struct {
	Ticker    string  `json:"ticker"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

// compareRequest is the wire form of a multi-ticker comparison request.
type compareRequest struct {
	Tickers   []string `json:"tickers"`
	Amount    float64  `json:"amount"`
	Frequency string   `json:"frequency"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// HandleCalculate runs the five-strategy calculation for one instrument.
// POST /api/investment/calculate
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	fields := map[string]string{}
	validateTicker(req.Ticker, fields)
	validateAmount(req.Amount, fields)
	validateFrequency(req.Frequency, fields)
	start, end := validateDateRange(req.StartDate, req.EndDate, fields)
	if len(fields) > 0 {
		h.writeError(w, http.StatusUnprocessableEntity, "validation failed", fields)
		return
	}

	payload, err := h.service.CalculateAllStrategies(r.Context(), calculator.Request{
		Ticker:    req.Ticker,
		Amount:    req.Amount,
		Frequency: req.Frequency,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.writeServiceError(w, req.Ticker, err)
		return
	}

	h.writeJSON(w, http.StatusOK, payload)
}

// HandleCompare runs the DCA comparison across several instruments.
// POST /api/investment/compare
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	fields := map[string]string{}
	if len(req.Tickers) == 0 {
		fields["tickers"] = "at least one ticker is required"
	}
	for _, ticker := range req.Tickers {
		validateTicker(ticker, fields)
	}
	validateAmount(req.Amount, fields)
	validateFrequency(req.Frequency, fields)
	start, end := validateDateRange(req.StartDate, req.EndDate, fields)
	if len(fields) > 0 {
		h.writeError(w, http.StatusUnprocessableEntity, "validation failed", fields)
		return
	}

	result, err := h.service.CompareDCA(r.Context(), req.Tickers, req.Amount, req.Frequency, start, end)
	if err != nil {
		h.writeServiceError(w, "", err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleInstruments lists the catalogue with local data coverage.
// GET /api/investment/instruments
func (h *Handler) HandleInstruments(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.InstrumentStatuses(h.instruments)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load instrument statuses")
		h.writeError(w, http.StatusInternalServerError, "failed to load instruments", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"instruments": statuses,
	})
}

// HandleChart renders PNG charts for one instrument.
// GET /api/investment/chart/{ticker}?from=YYYY-MM-DD&to=YYYY-MM-DD draws the
// stored close series. Adding amount= (and optionally frequency=) instead
// draws the cumulative value of every strategy under that contribution plan.
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	fields := map[string]string{}
	validateTicker(ticker, fields)
	if len(fields) > 0 {
		h.writeError(w, http.StatusUnprocessableEntity, "validation failed", fields)
		return
	}

	// Default window is the trailing year.
	end := time.Now()
	start := end.AddDate(-1, 0, 0)
	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := time.Parse(dateLayout, from)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "validation failed",
				map[string]string{"from": "must be formatted as YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	if to := r.URL.Query().Get("to"); to != "" {
		parsed, err := time.Parse(dateLayout, to)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "validation failed",
				map[string]string{"to": "must be formatted as YYYY-MM-DD"})
			return
		}
		end = parsed
	}

	if amount := r.URL.Query().Get("amount"); amount != "" {
		h.serveStrategyChart(w, r, ticker, amount, start, end)
		return
	}

	series, err := h.prices.PricesBetween(ticker, start, end)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to read price series")
		h.writeError(w, http.StatusInternalServerError, "failed to read price series", nil)
		return
	}

	png, err := charts.PriceChart(ticker, series)
	if errors.Is(err, charts.ErrNotEnoughData) {
		h.writeError(w, http.StatusBadRequest, "not enough local data to render chart", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to render chart")
		h.writeError(w, http.StatusInternalServerError, "failed to render chart", nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.log.Error().Err(err).Msg("Failed to write chart response")
	}
}

// serveStrategyChart runs the full calculation and renders each strategy's
// cumulative value as one line.
func (h *Handler) serveStrategyChart(w http.ResponseWriter, r *http.Request, ticker, amountStr string, start, end time.Time) {
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount < 1 {
		h.writeError(w, http.StatusUnprocessableEntity, "validation failed",
			map[string]string{"amount": "amount must be a number of at least 1"})
		return
	}

	frequency := r.URL.Query().Get("frequency")
	if frequency == "" {
		frequency = string(domain.FrequencyMonthly)
	}
	if _, err := domain.ParseFrequency(frequency); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "validation failed",
			map[string]string{"frequency": "frequency must be one of monthly, quarterly, yearly"})
		return
	}

	payload, err := h.service.CalculateAllStrategies(r.Context(), calculator.Request{
		Ticker:    ticker,
		Amount:    amount,
		Frequency: frequency,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.writeServiceError(w, ticker, err)
		return
	}

	labels, names, series := strategySeries(payload)

	png, err := charts.StrategyChart(ticker, labels, names, series)
	if errors.Is(err, charts.ErrNotEnoughData) {
		h.writeError(w, http.StatusBadRequest, "not enough local data to render chart", nil)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to render strategy chart")
		h.writeError(w, http.StatusInternalServerError, "failed to render chart", nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.log.Error().Err(err).Msg("Failed to write chart response")
	}
}

// strategySeries flattens a calculation payload into aligned x-axis labels
// and one cumulative-value line per strategy. Purchase ledgers already carry
// the running value; the deposit ledger is sampled at each label date since
// it steps monthly regardless of the contribution cadence.
func strategySeries(p *calculator.ComparisonPayload) ([]string, []string, [][]float64) {
	strategies := []struct {
		name   string
		result *calculator.StrategyResult
	}{
		{"Perfect timing", p.PerfectTiming},
		{"First day", p.FirstDay},
		{"DCA", p.DCA},
		{"Worst timing", p.WorstTiming},
	}

	// The x axis follows the longest ledger; strategies that skipped
	// periods hold their last value.
	var labels []string
	for _, s := range strategies {
		if len(s.result.Purchases) > len(labels) {
			labels = make([]string, len(s.result.Purchases))
			for i, purchase := range s.result.Purchases {
				labels[i] = purchase.Date
			}
		}
	}

	names := make([]string, 0, len(strategies)+1)
	series := make([][]float64, 0, len(strategies)+1)
	for _, s := range strategies {
		line := make([]float64, len(labels))
		var last float64
		for i := range labels {
			if i < len(s.result.Purchases) {
				last = s.result.Purchases[i].CurrentValue
			}
			line[i] = last
		}
		names = append(names, s.name)
		series = append(series, line)
	}

	deposit := make([]float64, len(labels))
	var balance float64
	idx := 0
	for i, label := range labels {
		for idx < len(p.Deposit.Deposits) && p.Deposit.Deposits[idx].Date <= label {
			balance = p.Deposit.Deposits[idx].Balance
			idx++
		}
		deposit[i] = balance
	}
	names = append(names, "Deposit")
	series = append(series, deposit)

	return labels, names, series
}

// writeServiceError maps calculation errors onto HTTP statuses. Domain
// errors are client-visible, everything else is a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, ticker string, err error) {
	var invalidFreq *domain.InvalidFrequencyError
	var noData *domain.NoDataAvailableError
	var fetchFailed *domain.DataFetchFailedError

	switch {
	case errors.As(err, &invalidFreq):
		h.writeError(w, http.StatusUnprocessableEntity, "validation failed",
			map[string]string{"frequency": err.Error()})
	case errors.As(err, &noData):
		h.writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &fetchFailed):
		h.writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Calculation failed")
		h.writeError(w, http.StatusInternalServerError, "calculation failed", nil)
	}
}

func validateTicker(ticker string, fields map[string]string) {
	if ticker == "" {
		fields["ticker"] = "ticker is required"
		return
	}
	if len(ticker) > maxTickerLength {
		fields["ticker"] = "ticker must be at most 20 characters"
	}
}

func validateAmount(amount float64, fields map[string]string) {
	if amount < 1 {
		fields["amount"] = "amount must be at least 1"
	}
}

func validateFrequency(frequency string, fields map[string]string) {
	if _, err := domain.ParseFrequency(frequency); err != nil {
		fields["frequency"] = "frequency must be one of monthly, quarterly, yearly"
	}
}

func validateDateRange(startStr, endStr string, fields map[string]string) (time.Time, time.Time) {
	var start, end time.Time
	var err error

	if startStr == "" {
		fields["start_date"] = "start_date is required"
	} else if start, err = time.Parse(dateLayout, startStr); err != nil {
		fields["start_date"] = "start_date must be formatted as YYYY-MM-DD"
	}

	if endStr == "" {
		fields["end_date"] = "end_date is required"
	} else if end, err = time.Parse(dateLayout, endStr); err != nil {
		fields["end_date"] = "end_date must be formatted as YYYY-MM-DD"
	}

	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		fields["start_date"] = "start_date must be before end_date"
	}

	return start, end
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, fields map[string]string) {
	body := map[string]interface{}{"error": message}
	if len(fields) > 0 {
		body["details"] = fields
	}
	h.writeJSON(w, status, body)
}
