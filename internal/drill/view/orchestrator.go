package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/drill"
	"github.com/ledgerlens/ledgerlens/internal/source"
)

// ErrUnknownVariant signals a variant outside the closed set reaching the
// fetch dispatcher. It is a logic error, not a network failure, and is kept
// distinct so callers can fail loudly instead of rendering a retry prompt.
var ErrUnknownVariant = errors.New("view: unknown drill variant")

// ViewState is the orchestrator's per-view state, created fresh whenever the
// controller's variant or filters change and discarded when the drawer
// closes.
type ViewState struct {
	Loading  bool
	Err      error
	Result   *Result // last successfully fetched result; survives fetch errors
	Page     int
	Preset   DateRangePreset
	Status   StatusFilter
	CashMode CashSourceMode
	Query    string // client-side search text
}

// fetchInputs is the full input set of one fetch, captured at fetch start.
// Retry replays the stored inputs verbatim, and the stored range feeds
// nested P&L account navigation.
type fetchInputs struct {
	variant  drill.Variant
	filters  drill.FilterSet
	page     int
	status   StatusFilter
	mode     CashSourceMode
	fromDate string
	toDate   string
}

// Orchestrator observes a drill Controller and keeps one view's fetch cycle,
// search, pagination and export coherent. Only the latest requested inputs
// ever reach the screen: a monotonic generation counter is captured when a
// fetch starts and compared when it resolves, so a slow stale response is
// discarded instead of overwriting a newer one.
type Orchestrator struct {
	mu       sync.Mutex
	ctx      context.Context
	ctrl     *drill.Controller
	src      source.DataSource
	logger   *slog.Logger
	now      func() time.Time
	onChange func()

	gen  uint64
	nav  drill.State
	view ViewState
	last fetchInputs

	unsubscribe func()
}

// New wires an orchestrator to a controller and data source. The context
// bounds all fetches issued over the orchestrator's lifetime. If the
// controller is already open (deep link), the first fetch is issued
// immediately.
func New(ctx context.Context, ctrl *drill.Controller, src source.DataSource, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		ctx:    ctx,
		ctrl:   ctrl,
		src:    src,
		logger: logger,
		now:    time.Now,
	}
	o.mu.Lock()
	o.nav = ctrl.State()
	if o.nav.IsOpen {
		o.resetView()
		o.reloadLocked()
	}
	o.mu.Unlock()
	o.unsubscribe = ctrl.Subscribe(o.handleNav)
	return o
}

// Close detaches the orchestrator from the controller.
func (o *Orchestrator) Close() {
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
}

// SetOnChange registers a callback invoked after every view state change.
func (o *Orchestrator) SetOnChange(fn func()) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

// WithNow overrides the clock used for preset resolution. Test hook.
func (o *Orchestrator) WithNow(fn func() time.Time) {
	if fn != nil {
		o.mu.Lock()
		o.now = fn
		o.mu.Unlock()
	}
}

// Snapshot returns a copy of the current view state. The Result pointer is
// shared and must be treated as read-only.
func (o *Orchestrator) Snapshot() ViewState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// Visible returns the current result with the search query applied, which is
// what rendering and export operate on.
func (o *Orchestrator) Visible() *Result {
	o.mu.Lock()
	res, query := o.view.Result, o.view.Query
	o.mu.Unlock()
	return Search(res, query)
}

// SetSearch updates the free-text filter. Purely client-side: the fetched
// result set is untouched and no fetch is issued.
func (o *Orchestrator) SetSearch(query string) {
	o.mu.Lock()
	o.view.Query = query
	o.mu.Unlock()
	o.notify()
}

// SetPreset switches the date-range preset, resetting to page 1.
func (o *Orchestrator) SetPreset(p DateRangePreset) {
	if !p.Valid() {
		return
	}
	o.mu.Lock()
	if !o.nav.IsOpen || o.view.Preset == p {
		o.mu.Unlock()
		return
	}
	o.view.Preset = p
	o.view.Page = 1
	o.reloadLocked()
	o.mu.Unlock()
	o.notify()
}

// SetStatus switches the invoice status filter, resetting to page 1.
func (o *Orchestrator) SetStatus(s StatusFilter) {
	if !s.Valid() {
		return
	}
	o.mu.Lock()
	if !o.nav.IsOpen || o.view.Status == s {
		o.mu.Unlock()
		return
	}
	o.view.Status = s
	o.view.Page = 1
	o.reloadLocked()
	o.mu.Unlock()
	o.notify()
}

// SetCashMode switches the cash view between the transaction and statement
// feeds, resetting to page 1.
func (o *Orchestrator) SetCashMode(m CashSourceMode) {
	if !m.Valid() {
		return
	}
	o.mu.Lock()
	if !o.nav.IsOpen || o.view.CashMode == m {
		o.mu.Unlock()
		return
	}
	o.view.CashMode = m
	o.view.Page = 1
	o.reloadLocked()
	o.mu.Unlock()
	o.notify()
}

// LoadMore advances to the next page when the current result reports more
// rows upstream. Each page replaces the displayed set; pages are not
// accumulated client-side.
func (o *Orchestrator) LoadMore() {
	o.mu.Lock()
	if !o.nav.IsOpen || o.view.Result == nil || !o.view.Result.HasMore {
		o.mu.Unlock()
		return
	}
	o.view.Page++
	o.reloadLocked()
	o.mu.Unlock()
	o.notify()
}

// Retry re-issues the last fetch with the identical captured inputs.
func (o *Orchestrator) Retry() {
	o.mu.Lock()
	if !o.nav.IsOpen {
		o.mu.Unlock()
		return
	}
	o.gen++
	o.view.Loading = true
	o.view.Err = nil
	go o.fetch(o.gen, o.last)
	o.mu.Unlock()
	o.notify()
}

// OpenInvoiceRow drills into an invoice or bill row, pushing the current view
// onto the breadcrumb. Only meaningful from the receivables and payables
// lists.
func (o *Orchestrator) OpenInvoiceRow(inv source.Invoice) {
	o.mu.Lock()
	nav := o.nav
	o.mu.Unlock()

	var detail drill.Variant
	var label string
	switch nav.Variant {
	case drill.VariantReceivables:
		detail = drill.VariantReceivablesDetail
		label = "Invoice " + inv.Number
	case drill.VariantPayables:
		detail = drill.VariantPayablesDetail
		label = "Bill " + inv.Number
	default:
		return
	}
	if inv.Number == "" {
		label = detail.DefaultTitle()
	}
	o.ctrl.OpenDrill(detail, drill.OpenOptions{
		Title:           label,
		Filters:         drill.FilterSet{InvoiceID: inv.ID},
		AddToBreadcrumb: true,
	})
}

// OpenCategoryAccount drills from a P&L category into one account's journal
// lines, carrying the currently resolved date range and pushing the current
// view onto the breadcrumb.
func (o *Orchestrator) OpenCategoryAccount(acc source.CategoryAccount) {
	o.mu.Lock()
	nav := o.nav
	fromDate, toDate := o.last.fromDate, o.last.toDate
	o.mu.Unlock()

	if nav.Variant != drill.VariantPnL {
		return
	}
	title := acc.Name
	if title == "" {
		title = drill.VariantPnLAccount.DefaultTitle()
	}
	o.ctrl.OpenDrill(drill.VariantPnLAccount, drill.OpenOptions{
		Title: title,
		Filters: drill.FilterSet{
			AccountID: acc.AccountID,
			FromDate:  fromDate,
			ToDate:    toDate,
		},
		AddToBreadcrumb: true,
	})
}

// handleNav reacts to controller transitions: close discards the view state
// and invalidates any in-flight fetch; a variant or filter change rebuilds
// the view state from scratch and fetches.
func (o *Orchestrator) handleNav(s drill.State) {
	o.mu.Lock()
	prev := o.nav
	o.nav = s
	switch {
	case !s.IsOpen:
		o.gen++ // in-flight results must not apply after close
		o.view = ViewState{}
	case !prev.IsOpen || prev.Variant != s.Variant || prev.Filters != s.Filters:
		o.resetView()
		o.reloadLocked()
	}
	o.mu.Unlock()
	o.notify()
}

// resetView builds a fresh ViewState for the current variant. Caller holds mu.
func (o *Orchestrator) resetView() {
	mode := ModeTransactions
	o.view = ViewState{
		Page:     1,
		Preset:   DefaultPreset(o.nav.Variant, mode),
		Status:   StatusOutstanding,
		CashMode: mode,
	}
}

// reloadLocked captures the current inputs under a new generation and starts
// the fetch. Caller holds mu.
func (o *Orchestrator) reloadLocked() {
	fromDate, toDate := o.view.Preset.Resolve(o.now())
	// Controller filters win over the preset when explicitly set, so deep
	// links and nested navigation keep their range.
	if o.nav.Filters.FromDate != "" {
		fromDate = o.nav.Filters.FromDate
	}
	if o.nav.Filters.ToDate != "" {
		toDate = o.nav.Filters.ToDate
	}
	o.gen++
	o.last = fetchInputs{
		variant:  o.nav.Variant,
		filters:  o.nav.Filters,
		page:     o.view.Page,
		status:   o.view.Status,
		mode:     o.view.CashMode,
		fromDate: fromDate,
		toDate:   toDate,
	}
	o.view.Loading = true
	o.view.Err = nil
	go o.fetch(o.gen, o.last)
}

func (o *Orchestrator) fetch(gen uint64, in fetchInputs) {
	res, err := o.dispatch(o.ctx, in)

	o.mu.Lock()
	if gen != o.gen || !o.nav.IsOpen || o.nav.Variant != in.variant {
		// Inputs moved on while this fetch was in flight; drop the result.
		o.mu.Unlock()
		return
	}
	o.view.Loading = false
	if err != nil {
		o.view.Err = err
		if o.logger != nil {
			o.logger.Error("drill fetch", slog.String("variant", string(in.variant)), slog.Any("error", err))
		}
	} else {
		o.view.Result = res
	}
	o.mu.Unlock()
	o.notify()
}

// dispatch runs the one query operation mapped to the variant.
func (o *Orchestrator) dispatch(ctx context.Context, in fetchInputs) (*Result, error) {
	return Fetch(ctx, o.src, FetchParams{
		Variant:  in.variant,
		Filters:  in.filters,
		Page:     in.page,
		Status:   in.status,
		CashMode: in.mode,
		FromDate: in.fromDate,
		ToDate:   in.toDate,
	})
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}
