// Package drill owns the dashboard's drill-down navigation state: which
// detail view is open, the filters scoping it, and the breadcrumb trail
// behind nested navigation. The state is kept in lockstep with a URL query
// string so that any view can be deep-linked or restored on reload.
package drill

// Variant identifies one of the closed set of drill detail views. Each
// variant maps to exactly one upstream query operation and result shape.
type Variant string

const (
	VariantCash              Variant = "cash"
	VariantReceivables       Variant = "receivables"
	VariantReceivablesDetail Variant = "receivables_detail"
	VariantPayables          Variant = "payables"
	VariantPayablesDetail    Variant = "payables_detail"
	VariantPnL               Variant = "pnl"
	VariantPnLAccount        Variant = "pnl_account"
)

// ParseVariant maps a query string token to a Variant.
func ParseVariant(s string) (Variant, bool) {
	switch Variant(s) {
	case VariantCash, VariantReceivables, VariantReceivablesDetail,
		VariantPayables, VariantPayablesDetail, VariantPnL, VariantPnLAccount:
		return Variant(s), true
	}
	return "", false
}

// Valid reports whether v is a member of the closed variant set.
func (v Variant) Valid() bool {
	_, ok := ParseVariant(string(v))
	return ok
}

// DefaultTitle returns the static label used when OpenDrill receives no title.
func (v Variant) DefaultTitle() string {
	switch v {
	case VariantCash:
		return "Cash Transactions"
	case VariantReceivables:
		return "Receivables"
	case VariantReceivablesDetail:
		return "Invoice Detail"
	case VariantPayables:
		return "Payables"
	case VariantPayablesDetail:
		return "Bill Detail"
	case VariantPnL:
		return "Profit & Loss"
	case VariantPnLAccount:
		return "Account Activity"
	default:
		return ""
	}
}

// FilterSet carries the query-narrowing parameters of a drill view. Only the
// subset relevant to the active variant is meaningful; unused fields are
// ignored by the fetch dispatcher but still round-trip through the URL.
// Dates are ISO "2006-01-02" strings, empty meaning unbounded.
type FilterSet struct {
	FromDate    string
	ToDate      string
	AccountID   string
	InvoiceID   string
	OverdueOnly bool
}

// IsZero reports whether no filter is set.
func (f FilterSet) IsZero() bool {
	return f == FilterSet{}
}

// FilterPatch is a partial FilterSet for UpdateFilters. Nil fields are left
// untouched; set fields win over the current value.
type FilterPatch struct {
	FromDate    *string
	ToDate      *string
	AccountID   *string
	InvoiceID   *string
	OverdueOnly *bool
}

// Apply merges the patch into f and returns the result.
func (f FilterSet) Apply(p FilterPatch) FilterSet {
	if p.FromDate != nil {
		f.FromDate = *p.FromDate
	}
	if p.ToDate != nil {
		f.ToDate = *p.ToDate
	}
	if p.AccountID != nil {
		f.AccountID = *p.AccountID
	}
	if p.InvoiceID != nil {
		f.InvoiceID = *p.InvoiceID
	}
	if p.OverdueOnly != nil {
		f.OverdueOnly = *p.OverdueOnly
	}
	return f
}

// BreadcrumbEntry is an immutable snapshot of a previous navigation state,
// restored when the user steps back out of a nested drill.
type BreadcrumbEntry struct {
	Variant Variant
	Title   string
	Filters FilterSet
}

// State is the full navigation state owned by the Controller.
type State struct {
	IsOpen     bool
	Variant    Variant // empty while closed
	Title      string
	Filters    FilterSet
	Breadcrumb []BreadcrumbEntry // most-recent last
}

// Depth returns the navigation depth: 0 when closed, breadcrumb length + 1
// while open.
func (s State) Depth() int {
	if !s.IsOpen {
		return 0
	}
	return len(s.Breadcrumb) + 1
}

func (s State) clone() State {
	if len(s.Breadcrumb) > 0 {
		trail := make([]BreadcrumbEntry, len(s.Breadcrumb))
		copy(trail, s.Breadcrumb)
		s.Breadcrumb = trail
	}
	return s
}
