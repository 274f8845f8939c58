package drill

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireSynced asserts the synchronization contract: the bar's drill keys
// are exactly the serialization of the controller state.
func requireSynced(t *testing.T, bar *MemoryBar, c *Controller) {
	t.Helper()
	state := c.State()
	got := bar.Query()
	want := EncodeQuery(state)
	for _, key := range drillQueryKeys {
		require.Equal(t, want.Get(key), got.Get(key), "key %s", key)
		require.Equal(t, want.Has(key), got.Has(key), "presence of %s", key)
	}
}

func TestOpenDrillFromClosed(t *testing.T) {
	bar := NewMemoryBar("")
	c := NewController(bar)

	c.OpenDrill(VariantReceivables, OpenOptions{Title: "Outstanding Invoices"})

	state := c.State()
	require.True(t, state.IsOpen)
	require.Equal(t, VariantReceivables, state.Variant)
	require.Equal(t, "Outstanding Invoices", state.Title)
	require.True(t, state.Filters.IsZero())
	require.Empty(t, state.Breadcrumb)
	require.Equal(t, "receivables", bar.Query().Get(QueryKeyDrill))
	requireSynced(t, bar, c)
}

func TestOpenDrillDefaultsTitle(t *testing.T) {
	c := NewController(NewMemoryBar(""))
	c.OpenDrill(VariantPnL, OpenOptions{})
	require.Equal(t, "Profit & Loss", c.State().Title)
}

func TestRowDrillPushesBreadcrumbAndGoBackRestores(t *testing.T) {
	bar := NewMemoryBar("")
	c := NewController(bar)

	c.OpenDrill(VariantReceivables, OpenOptions{Title: "Outstanding Invoices"})
	before := c.State()

	c.OpenDrill(VariantReceivablesDetail, OpenOptions{
		Filters:         FilterSet{InvoiceID: "42"},
		AddToBreadcrumb: true,
	})

	state := c.State()
	require.Equal(t, VariantReceivablesDetail, state.Variant)
	require.Equal(t, "42", state.Filters.InvoiceID)
	require.Len(t, state.Breadcrumb, 1)
	require.Equal(t, BreadcrumbEntry{
		Variant: VariantReceivables,
		Title:   "Outstanding Invoices",
	}, state.Breadcrumb[0])
	require.Equal(t, "42", bar.Query().Get(QueryKeyInvoice))
	requireSynced(t, bar, c)

	c.GoBack()
	require.Equal(t, before, c.State())
	require.False(t, bar.Query().Has(QueryKeyInvoice))
	requireSynced(t, bar, c)
}

func TestBreadcrumbSymmetry(t *testing.T) {
	bar := NewMemoryBar("")
	c := NewController(bar)
	c.OpenDrill(VariantPnL, OpenOptions{Filters: FilterSet{FromDate: "2026-01-01", ToDate: "2026-01-31"}})
	origin := c.State()

	steps := []struct {
		variant Variant
		filters FilterSet
	}{
		{VariantPnLAccount, FilterSet{AccountID: "acc-1", FromDate: "2026-01-01", ToDate: "2026-01-31"}},
		{VariantReceivables, FilterSet{OverdueOnly: true}},
		{VariantReceivablesDetail, FilterSet{InvoiceID: "77"}},
	}
	for _, step := range steps {
		c.OpenDrill(step.variant, OpenOptions{Filters: step.filters, AddToBreadcrumb: true})
		requireSynced(t, bar, c)
	}
	require.Equal(t, 4, c.State().Depth())

	for range steps {
		c.GoBack()
		requireSynced(t, bar, c)
	}
	require.Equal(t, origin, c.State())
}

func TestFreshRootClearsBreadcrumb(t *testing.T) {
	c := NewController(NewMemoryBar(""))
	c.OpenDrill(VariantReceivables, OpenOptions{})
	c.OpenDrill(VariantReceivablesDetail, OpenOptions{Filters: FilterSet{InvoiceID: "9"}, AddToBreadcrumb: true})
	require.Equal(t, 2, c.State().Depth())

	c.OpenDrill(VariantCash, OpenOptions{})
	state := c.State()
	require.Empty(t, state.Breadcrumb)
	require.Equal(t, 1, state.Depth())
}

func TestGoBackAtRootCloses(t *testing.T) {
	bar := NewMemoryBar("")
	c := NewController(bar)
	c.OpenDrill(VariantPayables, OpenOptions{})
	c.GoBack()

	state := c.State()
	require.False(t, state.IsOpen)
	require.Equal(t, Variant(""), state.Variant)
	require.True(t, state.Filters.IsZero())
	require.Empty(t, state.Breadcrumb)
	require.False(t, bar.Query().Has(QueryKeyDrill))
}

func TestCloseDrillIdempotent(t *testing.T) {
	bar := NewMemoryBar("")
	c := NewController(bar)
	c.OpenDrill(VariantCash, OpenOptions{Filters: FilterSet{AccountID: "b-1"}})

	c.CloseDrill()
	once := c.State()
	onceQuery := bar.Query().Encode()

	c.CloseDrill()
	require.Equal(t, once, c.State())
	require.Equal(t, onceQuery, bar.Query().Encode())
	requireSynced(t, bar, c)
}

func TestUpdateFiltersMergesAndRewritesURL(t *testing.T) {
	bar := NewMemoryBar("")
	c := NewController(bar)
	c.OpenDrill(VariantReceivables, OpenOptions{Filters: FilterSet{FromDate: "2026-01-01"}})

	to := "2026-03-31"
	overdue := true
	c.UpdateFilters(FilterPatch{ToDate: &to, OverdueOnly: &overdue})

	state := c.State()
	require.Equal(t, "2026-01-01", state.Filters.FromDate)
	require.Equal(t, "2026-03-31", state.Filters.ToDate)
	require.True(t, state.Filters.OverdueOnly)
	require.Equal(t, VariantReceivables, state.Variant)
	require.Empty(t, state.Breadcrumb)
	require.Equal(t, "true", bar.Query().Get(QueryKeyOverdue))
	requireSynced(t, bar, c)

	// Later patches win over earlier values.
	from := "2026-02-01"
	c.UpdateFilters(FilterPatch{FromDate: &from})
	require.Equal(t, "2026-02-01", c.State().Filters.FromDate)
	requireSynced(t, bar, c)
}

func TestDeepLinkSeedsAtDepthOne(t *testing.T) {
	bar := NewMemoryBar("drill=pnl_account&account_id=acc-9&from=2026-01-01&to=2026-06-30&tab=reports")
	c := NewController(bar)

	state := c.State()
	require.True(t, state.IsOpen)
	require.Equal(t, VariantPnLAccount, state.Variant)
	require.Equal(t, "acc-9", state.Filters.AccountID)
	require.Equal(t, "2026-01-01", state.Filters.FromDate)
	require.Empty(t, state.Breadcrumb)
	requireSynced(t, bar, c)
	// Unrelated keys survive the normalizing rewrite.
	require.Equal(t, "reports", bar.Query().Get("tab"))
}

func TestUnrecognizedDeepLinkStaysClosed(t *testing.T) {
	bar := NewMemoryBar("drill=bogus&invoice_id=1")
	c := NewController(bar)

	require.False(t, c.State().IsOpen)
	// The rewrite strips the unusable drill keys.
	require.False(t, bar.Query().Has(QueryKeyDrill))
	require.False(t, bar.Query().Has(QueryKeyInvoice))
}

func TestSubscribeObservesTransitions(t *testing.T) {
	c := NewController(NewMemoryBar(""))
	var seen []State
	unsubscribe := c.Subscribe(func(s State) { seen = append(seen, s) })

	c.OpenDrill(VariantCash, OpenOptions{})
	c.CloseDrill()
	require.Len(t, seen, 2)
	require.True(t, seen[0].IsOpen)
	require.False(t, seen[1].IsOpen)

	unsubscribe()
	c.OpenDrill(VariantPnL, OpenOptions{})
	require.Len(t, seen, 2)
}

func TestForeignQueryKeysPreserved(t *testing.T) {
	bar := NewMemoryBar("theme=dark")
	c := NewController(bar)
	c.OpenDrill(VariantCash, OpenOptions{})
	require.Equal(t, "dark", bar.Query().Get("theme"))
	c.CloseDrill()
	require.Equal(t, "dark", bar.Query().Get("theme"))
	require.False(t, bar.Query().Has(QueryKeyDrill))
}

func TestMemoryBarCopiesOnWrite(t *testing.T) {
	bar := NewMemoryBar("")
	values := url.Values{"drill": {"cash"}}
	bar.SetQuery(values)

	values.Set("drill", "payables")
	values.Set("rogue", "1")

	got := bar.Query()
	require.Equal(t, "cash", got.Get("drill"))
	require.Empty(t, got.Get("rogue"))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	states := []State{
		{},
		{IsOpen: true, Variant: VariantCash, Title: "Cash Transactions"},
		{IsOpen: true, Variant: VariantReceivables, Title: "Receivables", Filters: FilterSet{FromDate: "2026-01-01", ToDate: "2026-02-01", OverdueOnly: true}},
		{IsOpen: true, Variant: VariantPayablesDetail, Title: "Bill Detail", Filters: FilterSet{InvoiceID: "b-12"}},
		{IsOpen: true, Variant: VariantPnLAccount, Title: "Account Activity", Filters: FilterSet{AccountID: "acc-3"}},
	}
	for _, want := range states {
		got, ok := DecodeQuery(EncodeQuery(want))
		if !want.IsOpen {
			require.False(t, ok)
			continue
		}
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestMergeQueryRewritesDrillKeysWholesale(t *testing.T) {
	existing := url.Values{}
	existing.Set("tab", "cashflow")
	existing.Set(QueryKeyDrill, "cash")
	existing.Set(QueryKeyAccount, "old")

	merged := MergeQuery(existing, State{
		IsOpen:  true,
		Variant: VariantReceivables,
		Filters: FilterSet{OverdueOnly: true},
	})

	require.Equal(t, "receivables", merged.Get(QueryKeyDrill))
	require.False(t, merged.Has(QueryKeyAccount))
	require.Equal(t, "true", merged.Get(QueryKeyOverdue))
	require.Equal(t, "cashflow", merged.Get("tab"))
}
