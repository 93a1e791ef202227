package ui

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"climatrend/domain/climate"
	"climatrend/internal/errors"
)

// ErrorResponse is the JSON body of every non-2xx API response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type tableResponse struct {
	Section climate.Section          `json:"section"`
	Columns []string                 `json:"columns"`
	Records []map[string]interface{} `json:"records"`
}

type sectionsResponse struct {
	Sections []climate.Section `json:"sections"`
	Current  climate.Section   `json:"current"`
}

type decadalResponse struct {
	Decadal []climate.DecadalRow    `json:"decadal"`
	Changes []climate.DecadalChange `json:"changes"`
}

type seriesResponse struct {
	Window int                   `json:"window,omitempty"`
	Points []climate.SeriesPoint `json:"points"`
}

type monthlyResponse struct {
	Cells []climate.MonthlyCell `json:"cells"`
}

type profileResponse struct {
	Months []climate.MonthlyProfileRow `json:"months"`
}

type trendResponse struct {
	X         string    `json:"x"`
	Y         string    `json:"y"`
	Degree    int       `json:"degree"`
	Coeffs    []float64 `json:"coeffs"`
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	Points    int       `json:"points"`
}

type switchRequest struct {
	Section string `json:"section"`
}

type switchResponse struct {
	Section  climate.Section   `json:"section"`
	Snapshot *climate.Snapshot `json:"snapshot"`
}

// handleTable returns the cleaned observation records, missing values as null
func (a *App) handleTable(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/table")()

	table, err := a.reader.Table(r.Context())
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	records := make([]map[string]interface{}, 0, table.RowCount())
	for i, year := range table.Years {
		record := make(map[string]interface{}, len(table.Columns)+2)
		record[climate.YearColumn] = year
		for _, col := range table.Columns {
			record[col] = climate.Float(table.Data[col][i])
		}
		record[climate.AnnualColumn] = climate.Float(table.Annual[i])
		records = append(records, record)
	}

	a.collector.RecordAPIRequest("/api/table", r.Method, "200")
	a.sendJSON(w, tableResponse{Section: table.Section, Columns: table.Columns, Records: records}, http.StatusOK)
}

// handleSnapshot returns the audit record of the current load
func (a *App) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/snapshot")()

	snapshot, err := a.reader.Snapshot(r.Context())
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/snapshot", r.Method, "200")
	a.sendJSON(w, snapshot, http.StatusOK)
}

// handleSections lists the sections present in the source file
func (a *App) handleSections(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/sections")()

	sections, err := a.reader.Sections(r.Context())
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/sections", r.Method, "200")
	a.sendJSON(w, sectionsResponse{Sections: sections, Current: a.reader.Section()}, http.StatusOK)
}

// handleSwitchDataset validates the requested section label and re-runs the
// load pipeline; the current table stays live until the swap
func (a *App) handleSwitchDataset(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/dataset")()

	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendError(w, r, errors.InvalidInput("request body must be JSON with a section field"))
		return
	}

	section, err := climate.ParseSection(req.Section)
	if err != nil {
		a.sendError(w, r, errors.ValidationError(err.Error()))
		return
	}

	snapshot, err := a.service.Load(r.Context(), section)
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/dataset", r.Method, "200")
	a.sendJSON(w, switchResponse{Section: section, Snapshot: snapshot}, http.StatusOK)
}

// handleSummary returns the statistics bundle for the current table
func (a *App) handleSummary(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/summary")()

	summary, err := a.reader.Summary(r.Context())
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/summary", r.Method, "200")
	a.sendJSON(w, summary, http.StatusOK)
}

// handleTrend fits an arbitrary column pair on demand
func (a *App) handleTrend(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/trend")()

	xCol := r.URL.Query().Get("x")
	if xCol == "" {
		xCol = climate.YearColumn
	}
	yCol := r.URL.Query().Get("y")
	if yCol == "" {
		yCol = climate.AnnualColumn
	}

	degree := 1
	if degreeStr := r.URL.Query().Get("degree"); degreeStr != "" {
		parsed, err := strconv.Atoi(degreeStr)
		if err != nil || parsed < 1 || parsed > 2 {
			a.sendError(w, r, errors.InvalidInput("degree must be 1 or 2"))
			return
		}
		degree = parsed
	}

	trend, err := a.reader.Fit(r.Context(), xCol, yCol, degree)
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/trend", r.Method, "200")
	a.sendJSON(w, trendResponse{
		X:         xCol,
		Y:         yCol,
		Degree:    trend.Degree,
		Coeffs:    trend.Coeffs,
		Slope:     trend.Slope(),
		Intercept: trend.Intercept(),
		Points:    trend.Points,
	}, http.StatusOK)
}

// handleDecadal returns decadal means and decade-over-decade changes
func (a *App) handleDecadal(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/decadal")()

	products, err := a.reader.Products(r.Context(), 0)
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/decadal", r.Method, "200")
	a.sendJSON(w, decadalResponse{Decadal: products.Decadal, Changes: products.Changes}, http.StatusOK)
}

// handleRolling returns the trailing rolling mean; window is optional
func (a *App) handleRolling(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/rolling")()

	window := 0
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		parsed, err := strconv.Atoi(windowStr)
		if err != nil || parsed < 1 {
			a.sendError(w, r, errors.InvalidInput("window must be a positive integer"))
			return
		}
		window = parsed
	}

	products, err := a.reader.Products(r.Context(), window)
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/rolling", r.Method, "200")
	a.sendJSON(w, seriesResponse{Window: products.Window, Points: products.Rolling}, http.StatusOK)
}

// handleYearOverYear returns consecutive-year deltas
func (a *App) handleYearOverYear(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/yoy")()

	products, err := a.reader.Products(r.Context(), 0)
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/yoy", r.Method, "200")
	a.sendJSON(w, seriesResponse{Points: products.YoY}, http.StatusOK)
}

// handleMonthly returns the long-form (year, month, value) table
func (a *App) handleMonthly(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/monthly")()

	products, err := a.reader.Products(r.Context(), 0)
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/monthly", r.Method, "200")
	a.sendJSON(w, monthlyResponse{Cells: products.Monthly}, http.StatusOK)
}

// handleProfile returns per-month distribution statistics across all years
func (a *App) handleProfile(w http.ResponseWriter, r *http.Request) {
	defer a.observe("/api/profile")()

	profile, err := a.reader.MonthlyProfile(r.Context())
	if err != nil {
		a.sendError(w, r, err)
		return
	}

	a.collector.RecordAPIRequest("/api/profile", r.Method, "200")
	a.sendJSON(w, profileResponse{Months: profile}, http.StatusOK)
}

// handleHealth reports liveness and whether a dataset is loaded
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"loaded":    a.service.Loaded(),
		"section":   a.reader.Section(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	a.sendJSON(w, status, http.StatusOK)
}

// observe returns a deferred duration recorder for one endpoint
func (a *App) observe(endpoint string) func() {
	startTime := time.Now()
	return func() {
		a.collector.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}
}

// sendJSON sends a JSON response
func (a *App) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError maps an error to its HTTP status and sends the JSON error body
func (a *App) sendError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusForError(err)
	message := err.Error()

	a.collector.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))
	if statusCode >= http.StatusInternalServerError {
		a.logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		a.logger.Debug("%s %s rejected: %v", r.Method, r.URL.Path, err)
	}

	a.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// statusForError maps application error codes to HTTP statuses
func statusForError(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeInsufficientData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
