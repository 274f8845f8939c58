// Package drillhttp exposes the drill-down data endpoints consumed by the
// dashboard client.
package drillhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ledgerlens/ledgerlens/internal/drill"
	"github.com/ledgerlens/ledgerlens/internal/drill/view"
	"github.com/ledgerlens/ledgerlens/internal/platform/httpx"
	"github.com/ledgerlens/ledgerlens/internal/source"
)

const requestTimeout = 15 * time.Second

// Handler coordinates HTTP requests for the drill endpoints.
type Handler struct {
	logger    *slog.Logger
	src       source.DataSource
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs the drill HTTP handler.
func NewHandler(logger *slog.Logger, src source.DataSource) *Handler {
	v := validator.New()
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	return &Handler{
		logger:    logger,
		src:       src,
		validator: v,
		now:       time.Now,
	}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// drillParams is the decoded and validated query surface of the drill
// endpoints. Navigation keys reuse the shared drill query vocabulary; the
// rest are view parameters.
type drillParams struct {
	Variant  string `validate:"required"`
	FromDate string `validate:"omitempty,isodate"`
	ToDate   string `validate:"omitempty,isodate"`
	Preset   string `validate:"omitempty,oneof=last_7 last_30 last_90 last_year this_month this_year all"`
	Status   string `validate:"omitempty,oneof=outstanding paid all"`
	CashMode string `validate:"omitempty,oneof=transactions statements"`
	Page     int    `validate:"min=1"`
	PageSize int    `validate:"min=0,max=100"`
}

func (h *Handler) parseParams(r *http.Request) (view.FetchParams, string, error) {
	q := r.URL.Query()
	nav, ok := drill.DecodeQuery(q)
	if !ok {
		return view.FetchParams{}, "", fmt.Errorf("unknown or missing %s parameter", drill.QueryKeyDrill)
	}

	params := drillParams{
		Variant:  q.Get(drill.QueryKeyDrill),
		FromDate: q.Get(drill.QueryKeyFrom),
		ToDate:   q.Get(drill.QueryKeyTo),
		Preset:   q.Get("preset"),
		Status:   q.Get("status"),
		CashMode: q.Get("cash_source"),
		Page:     1,
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return view.FetchParams{}, "", fmt.Errorf("page must be a number")
		}
		params.Page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return view.FetchParams{}, "", fmt.Errorf("page_size must be a number")
		}
		params.PageSize = n
	}
	if err := h.validator.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return view.FetchParams{}, "", fmt.Errorf("invalid parameter %s", fieldErrs[0].StructField())
		}
		return view.FetchParams{}, "", err
	}

	fetch := view.FetchParams{
		Variant:  nav.Variant,
		Filters:  nav.Filters,
		Page:     params.Page,
		PageSize: params.PageSize,
		Status:   view.StatusOutstanding,
		CashMode: view.ModeTransactions,
		FromDate: nav.Filters.FromDate,
		ToDate:   nav.Filters.ToDate,
	}
	if params.Status != "" {
		fetch.Status = view.StatusFilter(params.Status)
	}
	if params.CashMode != "" {
		fetch.CashMode = view.CashSourceMode(params.CashMode)
	}

	// Explicit dates win; otherwise the preset (or the variant default)
	// resolves the range against today's clock.
	if fetch.FromDate == "" && fetch.ToDate == "" {
		preset := view.DefaultPreset(nav.Variant, fetch.CashMode)
		if params.Preset != "" {
			preset = view.DateRangePreset(params.Preset)
		}
		fetch.FromDate, fetch.ToDate = preset.Resolve(h.now())
		fetch.Filters.FromDate = fetch.FromDate
		fetch.Filters.ToDate = fetch.ToDate
	}
	return fetch, q.Get("q"), nil
}

// envelope is the drill data response: a success flag and the active summary
// flattened alongside the variant's rows.
type envelope struct {
	Success bool `json:"success"`
	Summary any  `json:"summary,omitempty"`
	*view.Result
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *Handler) handleDrill(w http.ResponseWriter, r *http.Request) {
	fetch, query, err := h.parseParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Drill Request", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := view.Fetch(ctx, h.src, fetch)
	if err != nil {
		if errors.Is(err, view.ErrUnknownVariant) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Drill Request", err.Error())
			return
		}
		if errors.Is(err, source.ErrNotFound) {
			httpx.JSON(w, http.StatusNotFound, failure{Error: "not found"})
			return
		}
		h.logger.Error("drill fetch", slog.String("variant", string(fetch.Variant)), slog.Any("error", err))
		httpx.JSON(w, http.StatusBadGateway, failure{Error: "failed to load drill data"})
		return
	}
	if query != "" {
		res = view.Search(res, query)
	}
	httpx.JSON(w, http.StatusOK, envelope{Success: true, Summary: res.ActiveSummary(), Result: res})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	fetch, query, err := h.parseParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Drill Request", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := view.Fetch(ctx, h.src, fetch)
	if err != nil {
		if errors.Is(err, view.ErrUnknownVariant) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Drill Request", err.Error())
			return
		}
		if errors.Is(err, source.ErrNotFound) {
			httpx.JSON(w, http.StatusNotFound, failure{Error: "not found"})
			return
		}
		h.logger.Error("drill export", slog.String("variant", string(fetch.Variant)), slog.Any("error", err))
		httpx.JSON(w, http.StatusBadGateway, failure{Error: "failed to load drill data"})
		return
	}
	res = view.Search(res, query)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", view.ExportFileName(fetch.Variant, h.now())))
	if err := view.WriteCSV(w, res); err != nil {
		h.logger.Error("drill export write", slog.Any("error", err))
	}
}

func (h *Handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	accounts, err := h.src.BankAccounts(ctx)
	if err != nil {
		h.logger.Error("drill accounts", slog.Any("error", err))
		httpx.JSON(w, http.StatusBadGateway, failure{Error: "failed to load bank accounts"})
		return
	}
	httpx.JSON(w, http.StatusOK, struct {
		Success  bool                 `json:"success"`
		Accounts []source.BankAccount `json:"accounts"`
	}{Success: true, Accounts: accounts})
}
