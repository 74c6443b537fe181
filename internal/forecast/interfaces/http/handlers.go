package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gdralph/rfot/internal/forecast/application/dto"
	"github.com/gdralph/rfot/internal/forecast/application/usecase"
)

// ============================================================================
// Handler Structure
// ============================================================================

// Handler holds the HTTP handlers for the resource-forecasting service.
type Handler struct {
	timelines  usecase.TimelineUseCase
	portfolio  usecase.PortfolioUseCase
	validate   *validator.Validate

	middlewareConfig MiddlewareConfig
}

// HandlerDependencies contains the dependencies NewHandler wires together.
type HandlerDependencies struct {
	TimelineUseCase  usecase.TimelineUseCase
	PortfolioUseCase usecase.PortfolioUseCase
	MiddlewareConfig MiddlewareConfig
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(deps HandlerDependencies) *Handler {
	config := deps.MiddlewareConfig
	if config.JWTSecret == "" {
		config = DefaultMiddlewareConfig()
	}
	return &Handler{
		timelines:        deps.TimelineUseCase,
		portfolio:        deps.PortfolioUseCase,
		validate:         validator.New(),
		middlewareConfig: config,
	}
}

// ============================================================================
// Decode / Respond Helpers
// ============================================================================

func (h *Handler) decodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return ErrInvalidJSON(err.Error())
	}
	if err := h.validate.Struct(v); err != nil {
		details := make(map[string]interface{})
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return ErrValidation("request validation failed", details)
	}
	return nil
}

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	h.respondJSON(w, status, APIResponse{Success: true, Data: data})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	httpErr := toHTTPError(err)
	h.respondJSON(w, httpErr.StatusCode, APIResponse{Success: false, Error: httpErr})
}

func (h *Handler) getQueryStringSlice(r *http.Request, name string) []string {
	values := r.URL.Query()[name]
	if len(values) == 1 {
		return splitComma(values[0])
	}
	return values
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// getQueryTime parses an optional RFC3339 query parameter. It returns a nil
// pointer, not an error, when the parameter is absent; portfolio_forecast
// and stage_resource_forecast default an absent start/end from the stored
// timeline bounds instead of rejecting the request.
func (h *Handler) getQueryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, ErrBadRequest("invalid " + name + ": expected RFC3339 timestamp")
	}
	return &t, nil
}

// ============================================================================
// Timeline Handlers (§6, per-opportunity verbs)
// ============================================================================

// ComputeTimeline handles POST /api/v1/forecast/timelines/compute.
func (h *Handler) ComputeTimeline(w http.ResponseWriter, r *http.Request) {
	var req dto.ComputeTimelineRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	resp, err := h.timelines.ComputeTimeline(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// GetTimeline handles GET /api/v1/forecast/opportunities/{opportunityID}/timeline.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	opportunityID := chi.URLParam(r, "opportunityID")
	resp, err := h.timelines.GetTimeline(r.Context(), opportunityID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// DeleteTimeline handles DELETE /api/v1/forecast/opportunities/{opportunityID}/timeline.
func (h *Handler) DeleteTimeline(w http.ResponseWriter, r *http.Request) {
	opportunityID := chi.URLParam(r, "opportunityID")
	resp, err := h.timelines.DeleteTimeline(r.Context(), opportunityID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// PatchStatus handles PATCH /api/v1/forecast/timelines/status.
func (h *Handler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.PatchStatusRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	resp, err := h.timelines.PatchStatus(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// PatchInterval handles PATCH /api/v1/forecast/timelines/interval.
func (h *Handler) PatchInterval(w http.ResponseWriter, r *http.Request) {
	var req dto.PatchIntervalRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	resp, err := h.timelines.PatchInterval(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// ============================================================================
// Timeline Handlers (§6, portfolio-scale verbs)
// ============================================================================

// GenerateBulk handles POST /api/v1/forecast/timelines/generate-bulk.
func (h *Handler) GenerateBulk(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateBulkRequest
	if r.ContentLength != 0 {
		if err := h.decodeJSON(r, &req); err != nil {
			h.respondError(w, err)
			return
		}
	}
	resp, err := h.timelines.GenerateBulk(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// GenerationStats handles GET /api/v1/forecast/timelines/stats.
func (h *Handler) GenerationStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.timelines.GenerationStats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// ClearPredicted handles POST /api/v1/forecast/timelines/clear-predicted.
func (h *Handler) ClearPredicted(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	resp, err := h.timelines.ClearPredicted(r.Context(), idempotencyKey)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// ============================================================================
// Portfolio Handlers (component G)
// ============================================================================

func (h *Handler) buildPortfolioRequest(r *http.Request) (*dto.PortfolioForecastRequest, error) {
	start, err := h.getQueryTime(r, "start")
	if err != nil {
		return nil, err
	}
	end, err := h.getQueryTime(r, "end")
	if err != nil {
		return nil, err
	}
	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		return nil, ErrMissingParameter("bucket")
	}

	req := &dto.PortfolioForecastRequest{
		ServiceLines:           h.getQueryStringSlice(r, "service_lines"),
		Categories:             h.getQueryStringSlice(r, "categories"),
		Stages:                 h.getQueryStringSlice(r, "stages"),
		OpportunitySalesStages: h.getQueryStringSlice(r, "opportunity_sales_stages"),
		Start:                  start,
		End:                    end,
		Bucket:                 bucket,
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, ErrValidation("request validation failed", nil)
	}
	return req, nil
}

// PortfolioForecast handles GET /api/v1/forecast/portfolio.
func (h *Handler) PortfolioForecast(w http.ResponseWriter, r *http.Request) {
	req, err := h.buildPortfolioRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp, err := h.portfolio.PortfolioForecast(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// StageResourceForecast handles GET /api/v1/forecast/portfolio/by-stage.
func (h *Handler) StageResourceForecast(w http.ResponseWriter, r *http.Request) {
	req, err := h.buildPortfolioRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp, err := h.portfolio.StageResourceForecast(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}

// TimelineBounds handles GET /api/v1/forecast/portfolio/bounds.
func (h *Handler) TimelineBounds(w http.ResponseWriter, r *http.Request) {
	resp, err := h.portfolio.TimelineBounds(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondSuccess(w, http.StatusOK, resp)
}
