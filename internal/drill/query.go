package drill

import "net/url"

// Query parameter names owned by the drill subsystem. Presence of QueryKeyDrill
// means a drill view is open; absence means closed.
const (
	QueryKeyDrill   = "drill"
	QueryKeyFrom    = "from"
	QueryKeyTo      = "to"
	QueryKeyAccount = "account_id"
	QueryKeyInvoice = "invoice_id"
	QueryKeyOverdue = "overdue"
)

var drillQueryKeys = []string{
	QueryKeyDrill,
	QueryKeyFrom,
	QueryKeyTo,
	QueryKeyAccount,
	QueryKeyInvoice,
	QueryKeyOverdue,
}

// EncodeQuery serializes the open/closed drill state to its query parameters.
// A closed state encodes to an empty set. The encoding never includes empty
// values: absence of a key is significant.
func EncodeQuery(s State) url.Values {
	values := url.Values{}
	if !s.IsOpen {
		return values
	}
	values.Set(QueryKeyDrill, string(s.Variant))
	if s.Filters.FromDate != "" {
		values.Set(QueryKeyFrom, s.Filters.FromDate)
	}
	if s.Filters.ToDate != "" {
		values.Set(QueryKeyTo, s.Filters.ToDate)
	}
	if s.Filters.AccountID != "" {
		values.Set(QueryKeyAccount, s.Filters.AccountID)
	}
	if s.Filters.InvoiceID != "" {
		values.Set(QueryKeyInvoice, s.Filters.InvoiceID)
	}
	if s.Filters.OverdueOnly {
		values.Set(QueryKeyOverdue, "true")
	}
	return values
}

// MergeQuery rewrites the drill portion of an existing query string: every
// drill key is removed and the serialization of s is layered back in.
// Unrelated keys pass through untouched, so the drill subsystem can share an
// address bar with the rest of the page.
func MergeQuery(existing url.Values, s State) url.Values {
	merged := url.Values{}
	for key, vals := range existing {
		merged[key] = append([]string(nil), vals...)
	}
	for _, key := range drillQueryKeys {
		merged.Del(key)
	}
	for key, vals := range EncodeQuery(s) {
		merged[key] = vals
	}
	return merged
}

// DecodeQuery reconstructs drill state from query parameters. The boolean is
// false when the parameters do not describe an open drill, either because the
// drill key is absent or because its value is not a recognized variant.
//
// Deep links always land at depth 1: the breadcrumb is never reconstructed
// from a URL.
func DecodeQuery(values url.Values) (State, bool) {
	variant, ok := ParseVariant(values.Get(QueryKeyDrill))
	if !ok {
		return State{}, false
	}
	return State{
		IsOpen:  true,
		Variant: variant,
		Title:   variant.DefaultTitle(),
		Filters: FilterSet{
			FromDate:    values.Get(QueryKeyFrom),
			ToDate:      values.Get(QueryKeyTo),
			AccountID:   values.Get(QueryKeyAccount),
			InvoiceID:   values.Get(QueryKeyInvoice),
			OverdueOnly: values.Get(QueryKeyOverdue) == "true",
		},
	}, true
}
