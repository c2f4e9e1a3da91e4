package console

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"flota_console/internal/logger"
	"flota_console/internal/metrics"
	"flota_console/internal/models"
	"flota_console/pkg/apperrors"
)

const emptyListMessage = "No se encontraron registros."

// ListState is a point-in-time copy of a list view.
type ListState struct {
	Resource     string            `json:"resource"`
	Items        []models.Entity   `json:"items"`
	Meta         models.Meta       `json:"meta"`
	Page         int               `json:"page"`
	Search       string            `json:"search"`
	Applied      string            `json:"applied_search"`
	Filters      map[string]string `json:"filters"`
	Loading      bool              `json:"loading"`
	Error        string            `json:"error,omitempty"`
	EmptyMessage string            `json:"empty_message,omitempty"`
	CanPrev      bool              `json:"can_prev"`
	CanNext      bool              `json:"can_next"`
	Seq          uint64            `json:"seq"`
}

type ListOptions struct {
	PerPage  int
	Clock    Clock
	Recorder Recorder
	// OnChange runs after every state change, outside the lock.
	OnChange func(ListState)
}

// ListView owns the paginated, filtered collection of one resource.
// Every change of applied search, filters or page issues exactly one fetch;
// only the response of the latest fetch is applied.
type ListView struct {
	mu sync.Mutex

	ctx      context.Context
	res      *models.Resource
	backend  Backend
	recorder Recorder
	onChange func(ListState)
	debounce *Debouncer

	perPage int
	search  string
	applied string
	filters map[string]string
	page    int

	items   []models.Entity
	meta    models.Meta
	loading bool
	errMsg  string
	loaded  bool

	seq      uint64
	inflight sync.WaitGroup
}

// NewListView creates a list bound to ctx; fetches outlive requests but not ctx.
func NewListView(ctx context.Context, res *models.Resource, backend Backend, opts ListOptions) *ListView {
	if opts.PerPage <= 0 {
		opts.PerPage = 20
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	l := &ListView{
		ctx:      ctx,
		res:      res,
		backend:  backend,
		recorder: opts.Recorder,
		onChange: opts.OnChange,
		perPage:  opts.PerPage,
		filters:  map[string]string{},
		page:     1,
		items:    []models.Entity{},
		meta:     models.NewMeta(1, opts.PerPage, 0),
	}
	l.debounce = NewDebouncer(opts.Clock, res.Debounce(), l.applySearch)
	return l
}

// Load issues the initial fetch.
func (l *ListView) Load() {
	l.mu.Lock()
	l.fetchLocked()
	l.mu.Unlock()
	l.notify()
}

// Refresh re-fetches the current page with the current filters.
func (l *ListView) Refresh() {
	l.Load()
}

// SetSearch records raw input; the fetch happens once the input settles.
func (l *ListView) SetSearch(q string) {
	l.mu.Lock()
	l.search = q
	l.mu.Unlock()
	l.debounce.Push(q)
	l.notify()
}

func (l *ListView) applySearch(q string) {
	l.mu.Lock()
	if q == l.applied {
		l.mu.Unlock()
		return
	}
	l.applied = q
	l.page = 1
	l.fetchLocked()
	l.mu.Unlock()
	l.notify()
}

// SetFilter changes one filter; "" clears it. Unchanged values are a no-op.
func (l *ListView) SetFilter(key, value string) error {
	return l.SetFilters(map[string]string{key: value}, false)
}

// SetFilters applies several filter values at once. With replace, filters
// not present in values are cleared.
func (l *ListView) SetFilters(values map[string]string, replace bool) error {
	for k := range values {
		if !l.res.IsFilter(k) {
			return apperrors.NewBadRequestError(fmt.Sprintf("Filtro desconocido: %s", k))
		}
	}

	l.mu.Lock()
	next := map[string]string{}
	if !replace {
		maps.Copy(next, l.filters)
	}
	for k, v := range values {
		if v == "" {
			delete(next, k)
		} else {
			next[k] = v
		}
	}
	if maps.Equal(next, l.filters) {
		l.mu.Unlock()
		return nil
	}
	l.filters = next
	l.page = 1
	l.fetchLocked()
	l.mu.Unlock()
	l.notify()
	return nil
}

// GoToPage moves to p. Out-of-range or same-page requests do nothing and
// report false.
func (l *ListView) GoToPage(p int) bool {
	l.mu.Lock()
	if p < 1 || p > l.meta.MaxPage() || p == l.page {
		l.mu.Unlock()
		return false
	}
	l.page = p
	l.fetchLocked()
	l.mu.Unlock()
	l.notify()
	return true
}

func (l *ListView) NextPage() bool {
	l.mu.Lock()
	p := l.page + 1
	l.mu.Unlock()
	return l.GoToPage(p)
}

func (l *ListView) PrevPage() bool {
	l.mu.Lock()
	p := l.page - 1
	l.mu.Unlock()
	return l.GoToPage(p)
}

// DismissError clears the banner. Rows are untouched.
func (l *ListView) DismissError() {
	l.mu.Lock()
	l.errMsg = ""
	l.mu.Unlock()
	l.notify()
}

// Query returns the filter state of the current view.
func (l *ListView) Query() models.ListQuery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queryLocked()
}

// Find returns a currently displayed row by id.
func (l *ListView) Find(id string) (models.Entity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.items {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

func (l *ListView) Snapshot() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Flush waits for in-flight fetches.
func (l *ListView) Flush() {
	l.inflight.Wait()
}

// Close stops the debouncer. In-flight fetches finish against ctx.
func (l *ListView) Close() {
	l.debounce.Stop()
}

func (l *ListView) queryLocked() models.ListQuery {
	return models.ListQuery{
		Page:    l.page,
		PerPage: l.perPage,
		Search:  l.applied,
		Filters: maps.Clone(l.filters),
	}
}

func (l *ListView) snapshotLocked() ListState {
	st := ListState{
		Resource: l.res.Name,
		Items:    l.items,
		Meta:     l.meta,
		Page:     l.page,
		Search:   l.search,
		Applied:  l.applied,
		Filters:  maps.Clone(l.filters),
		Loading:  l.loading,
		Error:    l.errMsg,
		CanPrev:  l.page > 1,
		CanNext:  l.page < l.meta.MaxPage(),
		Seq:      l.seq,
	}
	if l.loaded && !l.loading && l.errMsg == "" && len(l.items) == 0 {
		st.EmptyMessage = emptyListMessage
	}
	return st
}

// fetchLocked tags a new fetch with the next sequence number and runs it.
func (l *ListView) fetchLocked() {
	l.seq++
	seq := l.seq
	q := l.queryLocked()
	l.loading = true

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		page, err := l.backend.List(l.ctx, l.res.BasePath(), q)
		l.apply(seq, page, err)
	}()
}

func (l *ListView) apply(seq uint64, page models.Page, err error) {
	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		l.recorder.ListFetch(l.res.Name, metrics.OutcomeStale)
		logger.Debug("discarding stale list response", "resource", l.res.Name, "seq", seq, "latest", l.seq)
		return
	}
	if err == nil && l.page > page.Meta.MaxPage() {
		// The requested page no longer exists; move to the new last page.
		l.page = page.Meta.MaxPage()
		l.meta = page.Meta
		l.fetchLocked()
		l.mu.Unlock()
		l.recorder.ListFetch(l.res.Name, metrics.OutcomeClamped)
		l.notify()
		return
	}
	l.loading = false
	l.loaded = true
	if err != nil {
		// Keep the rows already on screen.
		l.errMsg = apperrors.UserMessage(err)
		l.mu.Unlock()
		l.recorder.ListFetch(l.res.Name, metrics.OutcomeError)
		l.notify()
		return
	}
	l.errMsg = ""
	l.items = page.Items
	if l.items == nil {
		l.items = []models.Entity{}
	}
	l.meta = page.Meta
	l.mu.Unlock()
	l.recorder.ListFetch(l.res.Name, metrics.OutcomeApplied)
	l.notify()
}

func (l *ListView) notify() {
	if l.onChange == nil {
		return
	}
	l.onChange(l.Snapshot())
}
