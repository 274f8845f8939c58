package drill

import (
	"net/url"
	"sync"
)

// AddressBar abstracts the location the drill state is mirrored into. In the
// browser this is the page URL; in tests and embedded use it is an in-memory
// value.
type AddressBar interface {
	Query() url.Values
	SetQuery(url.Values)
}

// MemoryBar is an in-memory AddressBar.
type MemoryBar struct {
	mu     sync.Mutex
	values url.Values
}

// NewMemoryBar returns a MemoryBar seeded with the given query string.
// An empty rawQuery is valid.
func NewMemoryBar(rawQuery string) *MemoryBar {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}
	return &MemoryBar{values: values}
}

// Query returns a copy of the current query parameters.
func (b *MemoryBar) Query() url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := url.Values{}
	for key, vals := range b.values {
		out[key] = append([]string(nil), vals...)
	}
	return out
}

// SetQuery replaces the query parameters wholesale. The values are copied so
// later mutation of the caller's map cannot bypass the lock.
func (b *MemoryBar) SetQuery(values url.Values) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := url.Values{}
	for key, vals := range values {
		copied[key] = append([]string(nil), vals...)
	}
	b.values = copied
}

// OpenOptions modify OpenDrill behaviour.
type OpenOptions struct {
	// Title overrides the variant's default label.
	Title string
	// Filters scope the new view.
	Filters FilterSet
	// AddToBreadcrumb snapshots the currently open view onto the breadcrumb
	// before switching, enabling GoBack. When false the breadcrumb is cleared
	// and the new view becomes a fresh navigation root.
	AddToBreadcrumb bool
}

// Controller is the single source of truth for drill navigation. All mutation
// goes through OpenDrill, CloseDrill, GoBack and UpdateFilters; each applies
// atomically and rewrites the address bar in the same step, so the URL never
// drifts from the in-memory state.
type Controller struct {
	mu    sync.Mutex
	bar   AddressBar
	state State
	subs  map[int]func(State)
	nextS int
}

// NewController builds a Controller bound to an address bar. If the bar's
// current query names a recognized drill variant the controller re-seeds
// itself from it, restoring deep links at depth 1.
func NewController(bar AddressBar) *Controller {
	c := &Controller{bar: bar, subs: make(map[int]func(State))}
	if seeded, ok := DecodeQuery(bar.Query()); ok {
		c.state = seeded
	}
	c.writeBar()
	return c
}

// State returns a snapshot of the current navigation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers an observer called after every state transition with a
// snapshot of the new state. The returned function removes the observer.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextS
	c.nextS++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// OpenDrill opens (or switches to) the given variant. It cannot fail: an
// always-valid state plus URL write is the whole operation.
func (c *Controller) OpenDrill(variant Variant, opts OpenOptions) {
	c.mu.Lock()
	if opts.AddToBreadcrumb && c.state.IsOpen {
		c.state.Breadcrumb = append(c.state.Breadcrumb, BreadcrumbEntry{
			Variant: c.state.Variant,
			Title:   c.state.Title,
			Filters: c.state.Filters,
		})
	} else {
		c.state.Breadcrumb = nil
	}
	title := opts.Title
	if title == "" {
		title = variant.DefaultTitle()
	}
	c.state.IsOpen = true
	c.state.Variant = variant
	c.state.Title = title
	c.state.Filters = opts.Filters
	c.commit()
}

// CloseDrill resets to the closed state and strips the drill keys from the
// address bar. Idempotent.
func (c *Controller) CloseDrill() {
	c.mu.Lock()
	c.state = State{}
	c.commit()
}

// GoBack pops the most recent breadcrumb entry and restores it. With an empty
// breadcrumb it behaves exactly like CloseDrill.
func (c *Controller) GoBack() {
	c.mu.Lock()
	if len(c.state.Breadcrumb) == 0 {
		c.state = State{}
		c.commit()
		return
	}
	last := len(c.state.Breadcrumb) - 1
	entry := c.state.Breadcrumb[last]
	if last == 0 {
		c.state.Breadcrumb = nil
	} else {
		c.state.Breadcrumb = c.state.Breadcrumb[:last]
	}
	c.state.Variant = entry.Variant
	c.state.Title = entry.Title
	c.state.Filters = entry.Filters
	c.commit()
}

// UpdateFilters merges the patch into the current filters without touching
// the open flag, variant, title or breadcrumb.
func (c *Controller) UpdateFilters(patch FilterPatch) {
	c.mu.Lock()
	c.state.Filters = c.state.Filters.Apply(patch)
	c.commit()
}

// commit writes the address bar, snapshots the state and notifies observers.
// Called with c.mu held; observers run after the lock is released so they may
// navigate further.
func (c *Controller) commit() {
	c.writeBar()
	snapshot := c.state.clone()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}
}

func (c *Controller) writeBar() {
	if c.bar == nil {
		return
	}
	c.bar.SetQuery(MergeQuery(c.bar.Query(), c.state))
}
