// Package http provides the chi-based HTTP transport for the analytics
// service.
package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "retailpulse/internal/errors"
	"retailpulse/internal/retail"
	"retailpulse/internal/services"
)

// AnalyticsHandler serves the analytical views over HTTP.
type AnalyticsHandler struct {
	service      *services.AnalyticsService
	logger       *slog.Logger
	validate     *validator.Validate
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates an analytics handler.
func NewAnalyticsHandler(service *services.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		logger:       logger,
		validate:     validator.New(),
		errorHandler: apierrors.NewErrorHandler(logger),
	}
}

// RegisterRoutes registers the analytics routes.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/aggregate", h.GetAggregate)
		r.Get("/customers/value", h.GetCustomerValues)
		r.Get("/customers/rfm", h.GetRFM)
		r.Get("/cohorts", h.GetCohorts)
		r.Get("/outliers", h.GetOutliers)
		r.Get("/trend", h.GetTrend)
		r.Get("/quality", h.GetQuality)
		r.Get("/report", h.GetFullReport)
	})
}

// aggregateRequest is the parsed and validated query for GET /aggregate.
type aggregateRequest struct {
	GroupBy []string `validate:"required,min=1,max=3,dive,required"`
	Metrics []string `validate:"required,min=1,max=8,dive,required"`
}

// GetAggregate computes grouped metrics. Query parameters:
//
//	group_by=category,gender   grouping fields, in order
//	metrics=sum:total_sale     op:field pairs; count takes no field
func (h *AnalyticsHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := aggregateRequest{
		GroupBy: splitParam(r.URL.Query().Get("group_by")),
		Metrics: splitParam(r.URL.Query().Get("metrics")),
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("group_by/metrics", "both group_by and metrics are required"))
		return
	}

	groupBy := make([]retail.GroupField, 0, len(req.GroupBy))
	for _, raw := range req.GroupBy {
		field, err := retail.ParseGroupField(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidParameterError("group_by", err))
			return
		}
		groupBy = append(groupBy, field)
	}

	metrics := make([]retail.MetricSpec, 0, len(req.Metrics))
	for _, raw := range req.Metrics {
		spec, err := retail.ParseMetricSpec(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidParameterError("metrics", err))
			return
		}
		metrics = append(metrics, spec)
	}

	rows, err := h.service.Aggregate(ctx, groupBy, metrics)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ComputeError("aggregate", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"groups": len(rows),
		"rows":   rows,
	})
}

// GetCustomerValues returns the ranked customer value report.
func (h *AnalyticsHandler) GetCustomerValues(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.CustomerValues(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ComputeError("customer values", err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"customers": len(values),
		"values":    values,
	})
}

// GetRFM returns RFM profiles for every customer.
func (h *AnalyticsHandler) GetRFM(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.RFM(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ComputeError("rfm profiles", err))
		return
	}

	// Segment counts ride along so dashboards need not recompute them.
	segments := make(map[retail.SegmentLabel]int)
	for _, p := range profiles {
		segments[p.Segment]++
	}

	render.JSON(w, r, map[string]interface{}{
		"customers": len(profiles),
		"segments":  segments,
		"profiles":  profiles,
	})
}

// GetCohorts returns the monthly cohort retention matrix.
func (h *AnalyticsHandler) GetCohorts(w http.ResponseWriter, r *http.Request) {
	cohorts := h.service.Cohorts(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"cohorts": cohorts,
	})
}

// outlierRequest is the parsed and validated query for GET /outliers.
// Sigma 0 means the configured default.
type outlierRequest struct {
	Field string  `validate:"required"`
	Sigma float64 `validate:"gte=0,lte=10"`
}

// GetOutliers flags z-score outliers on a numeric field. Query
// parameters: field (defaults to total_sale) and sigma (overrides the
// configured threshold).
func (h *AnalyticsHandler) GetOutliers(w http.ResponseWriter, r *http.Request) {
	req := outlierRequest{Field: r.URL.Query().Get("field")}
	if req.Field == "" {
		req.Field = string(retail.FieldTotalSale)
	}
	if raw := r.URL.Query().Get("sigma"); raw != "" {
		sigma, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidParameterError("sigma", err))
			return
		}
		req.Sigma = sigma
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("sigma", "sigma must be between 0 and 10"))
		return
	}

	field, err := retail.ParseNumericField(req.Field)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameterError("field", err))
		return
	}

	report, err := h.service.Outliers(r.Context(), field, req.Sigma)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ComputeError("outliers", err))
		return
	}
	render.JSON(w, r, report)
}

// GetTrend returns the monthly revenue trend.
func (h *AnalyticsHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.MonthlyTrend(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ComputeError("monthly trend", err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"months": len(rows),
		"trend":  rows,
	})
}

// GetQuality returns the validation report for the loaded dataset.
func (h *AnalyticsHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Quality())
}

// GetFullReport computes every view and returns them together.
func (h *AnalyticsHandler) GetFullReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GenerateFullReport(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ComputeError("full report", err))
		return
	}
	render.JSON(w, r, report)
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
