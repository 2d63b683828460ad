// Package appstate owns the application state shared by every request: the cached report lists,
// the sync status and the sessions. All mutation goes through the App's transition methods.
package appstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/report"
)

type SyncStatus string

const (
	StatusIdle    SyncStatus = "IDLE"
	StatusLoading SyncStatus = "LOADING"
	StatusSuccess SyncStatus = "SUCCESS"
	StatusError   SyncStatus = "ERROR"
)

const (
	DefaultNavigateDelay  = 1200 * time.Millisecond
	DefaultReconcileDelay = 2 * time.Second
)

var (
	ErrClosed         = errors.New("app is closed")
	ErrNotUnconfirmed = errors.New("report has no unconfirmed change")
)

// Store is the remote report sheet.
type Store interface {
	// Fetch returns every stored row of kind, in storage order.
	Fetch(ctx context.Context, kind report.Kind) ([]report.Record, error)
	// Append stores rec. A nil error means the request completed, not that the row was read back.
	Append(ctx context.Context, rec report.Record) error
}

// Observer is told about state changes. It is called with the App's lock held and must not call back into it.
type Observer interface {
	StatusChanged(status SyncStatus)
	WriteFinished(kind report.Kind, err error)
	UnconfirmedChanged(n int)
}

type Options struct {
	NavigateDelay  time.Duration
	ReconcileDelay time.Duration
	SessionTTL     time.Duration // age at which a session is dropped; zero keeps it until logout
	Logger         core.Logger
	Observer       Observer
}

// Receipt is returned by Save before the remote write completes.
type Receipt struct {
	ID              string        `json:"id"`
	Kind            report.Kind   `json:"kind"`
	Status          SyncStatus    `json:"status"`
	NavigateTo      View          `json:"navigate_to"`
	NavigateAfter   time.Duration `json:"-"`
	NavigateAfterMS int64         `json:"navigate_after_ms"`
}

// UnconfirmedRecord is a local change whose remote write failed.
type UnconfirmedRecord struct {
	ID     string        `json:"id"`
	Kind   report.Kind   `json:"kind"`
	Error  string        `json:"error"`
	At     time.Time     `json:"at"`
	Record report.Record `json:"record"`
	IsNew  bool          `json:"is_new"` // rolling back removes the record
}

// Snapshot is an immutable copy of the state for views.
type Snapshot struct {
	Status      SyncStatus        `json:"status"`
	Error       string            `json:"error,omitempty"`
	Assembly    []report.Assembly `json:"perhimpunan"`
	Caring      []report.Caring   `json:"penyayang"`
	Unconfirmed []string          `json:"unconfirmed"`
	Pending     []string          `json:"pending"`
	LoadedAt    time.Time         `json:"loaded_at"`
}

type (
	// change is a local record not confirmed by the store yet.
	// previous is the last confirmed value, nil when the record is new.
	change struct {
		kind     report.Kind
		current  report.Record
		previous report.Record
	}

	write struct {
		change
		cancel context.CancelFunc
	}

	failedWrite struct {
		change
		err error
		at  time.Time
	}

	// confirmedWrite is a stored change no fetch has read back yet. seq is the last fetch
	// started before the store confirmed it.
	confirmedWrite struct {
		change
		seq uint64
	}
)

type App struct {
	store  Store
	opts   Options
	logger core.Logger

	mu          sync.RWMutex
	status      SyncStatus
	lastErr     error
	loadedAt    time.Time
	assembly    []report.Assembly
	caring      []report.Caring
	unconfirmed map[string]*failedWrite
	writes      map[string]*write
	confirmed   map[string]*confirmedWrite
	fetchSeq    uint64
	timers      map[*time.Timer]struct{}
	sessions    map[string]*Session
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store Store, opts Options) *App {
	if opts.NavigateDelay <= 0 {
		opts.NavigateDelay = DefaultNavigateDelay
	}
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = DefaultReconcileDelay
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		store:       store,
		opts:        opts,
		logger:      opts.Logger,
		status:      StatusIdle,
		assembly:    make([]report.Assembly, 0),
		caring:      make([]report.Caring, 0),
		unconfirmed: make(map[string]*failedWrite),
		writes:      make(map[string]*write),
		confirmed:   make(map[string]*confirmedWrite),
		timers:      make(map[*time.Timer]struct{}),
		sessions:    make(map[string]*Session),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Load fetches both lists concurrently and replaces them. On failure the previous lists are kept.
func (a *App) Load(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.setStatus(StatusLoading, nil)
	seq := a.nextFetch()
	a.mu.Unlock()

	var assembly, caring []report.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assembly, err = a.store.Fetch(gctx, report.KindAssembly)
		return errors.Wrap(err, "fetching assembly reports")
	})
	g.Go(func() error {
		var err error
		caring, err = a.store.Fetch(gctx, report.KindCaring)
		return errors.Wrap(err, "fetching caring reports")
	})
	err := g.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.setStatus(StatusError, err)
		return err
	}
	a.replace(report.KindAssembly, assembly, seq)
	a.replace(report.KindCaring, caring, seq)
	a.loadedAt = time.Now()
	a.setStatus(StatusSuccess, nil)
	return nil
}

// LoadKind is the reconcile read of one list. Unlike Load it does not go through LOADING.
func (a *App) LoadKind(ctx context.Context, kind report.Kind) error {
	a.mu.Lock()
	seq := a.nextFetch()
	a.mu.Unlock()

	recs, err := a.store.Fetch(ctx, kind)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		err = errors.Wrapf(err, "fetching %s reports", kind)
		a.setStatus(StatusError, err)
		return err
	}
	a.replace(kind, recs, seq)
	a.loadedAt = time.Now()
	a.setStatus(StatusSuccess, nil)
	return nil
}

// Save merges rec into its list right away and writes it to the store in the background.
// When sessionID names a live session, it is moved to the kind's list view after the navigate delay.
func (a *App) Save(ctx context.Context, sessionID string, rec report.Record) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	switch r := rec.(type) {
	case *report.Assembly:
		rec = *r
	case *report.Caring:
		rec = *r
	}
	kind, id := rec.Kind(), rec.RecordID()
	dest := listView(kind)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Receipt{}, ErrClosed
	}

	chg := change{kind: kind, current: rec}
	if w, ok := a.writes[id]; ok {
		// the superseded write was never confirmed: keep its rollback value
		chg.previous = w.previous
		w.cancel()
	} else if f, ok := a.unconfirmed[id]; ok {
		chg.previous = f.previous
		delete(a.unconfirmed, id)
		a.opts.Observer.UnconfirmedChanged(len(a.unconfirmed))
	} else if prev, ok := a.find(kind, id); ok {
		chg.previous = prev
	}
	delete(a.confirmed, id)

	a.merge(rec)
	a.setStatus(StatusLoading, nil)

	wctx, cancel := context.WithCancel(a.ctx)
	w := &write{change: chg, cancel: cancel}
	a.writes[id] = w
	a.wg.Add(1)
	go a.runWrite(wctx, w)

	if sessionID != "" {
		a.schedule(a.opts.NavigateDelay, func() { _ = a.Navigate(sessionID, dest) })
	}

	return Receipt{
		ID:              id,
		Kind:            kind,
		Status:          a.status,
		NavigateTo:      dest,
		NavigateAfter:   a.opts.NavigateDelay,
		NavigateAfterMS: a.opts.NavigateDelay.Milliseconds(),
	}, nil
}

func (a *App) runWrite(ctx context.Context, w *write) {
	defer a.wg.Done()
	defer w.cancel()
	id := w.current.RecordID()

	err := a.store.Append(ctx, w.current)

	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.writes[id]; !ok || cur != w {
		return // superseded by a newer save of the same record
	}
	delete(a.writes, id)

	if err != nil {
		if a.closed {
			return
		}
		err = errors.Wrapf(err, "saving %s report %s", w.kind, id)
		a.unconfirmed[id] = &failedWrite{change: w.change, err: err, at: time.Now()}
		a.opts.Observer.UnconfirmedChanged(len(a.unconfirmed))
		a.opts.Observer.WriteFinished(w.kind, err)
		a.setStatus(StatusError, err)
		if a.logger != nil {
			a.logger.Warn(fmt.Sprintf("appstate: %v", err), err)
		}
		return
	}

	a.confirmed[id] = &confirmedWrite{change: w.change, seq: a.fetchSeq}
	a.opts.Observer.WriteFinished(w.kind, nil)
	a.setStatus(StatusSuccess, nil)
	kind := w.kind
	a.schedule(a.opts.ReconcileDelay, func() {
		if err := a.LoadKind(a.ctx, kind); err != nil && a.logger != nil && a.ctx.Err() == nil {
			a.logger.Warn(fmt.Sprintf("appstate: reconcile: %v", err), err)
		}
	})
}

// Rollback discards the unconfirmed change of id: the last confirmed value is restored,
// or the record is removed when it was new.
func (a *App) Rollback(id string) (report.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.unconfirmed[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotUnconfirmed, "%q", id)
	}
	delete(a.unconfirmed, id)
	a.opts.Observer.UnconfirmedChanged(len(a.unconfirmed))

	if f.previous == nil {
		a.remove(f.kind, id)
		return nil, nil
	}
	a.merge(f.previous)
	return f.previous, nil
}

// Unconfirmed lists the local changes whose write failed, oldest first.
func (a *App) Unconfirmed() []UnconfirmedRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	recs := make([]UnconfirmedRecord, 0, len(a.unconfirmed))
	for id, f := range a.unconfirmed {
		recs = append(recs, UnconfirmedRecord{
			ID:     id,
			Kind:   f.kind,
			Error:  f.err.Error(),
			At:     f.at,
			Record: f.current,
			IsNew:  f.previous == nil,
		})
	}
	sortUnconfirmed(recs)
	return recs
}

func (a *App) Status() (SyncStatus, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status, a.lastErr
}

func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Snapshot{
		Status:      a.status,
		Assembly:    append([]report.Assembly(nil), a.assembly...),
		Caring:      append([]report.Caring(nil), a.caring...),
		Unconfirmed: make([]string, 0, len(a.unconfirmed)),
		Pending:     make([]string, 0, len(a.writes)),
		LoadedAt:    a.loadedAt,
	}
	if a.lastErr != nil {
		s.Error = a.lastErr.Error()
	}
	for id := range a.unconfirmed {
		s.Unconfirmed = append(s.Unconfirmed, id)
	}
	for id := range a.writes {
		s.Pending = append(s.Pending, id)
	}
	sortStrings(s.Unconfirmed, s.Pending)
	return s
}

// Assembly returns a copy of the assembly list.
func (a *App) Assembly() []report.Assembly {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append(make([]report.Assembly, 0, len(a.assembly)), a.assembly...)
}

// Caring returns a copy of the caring list.
func (a *App) Caring() []report.Caring {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append(make([]report.Caring, 0, len(a.caring)), a.caring...)
}

// Get returns the cached record of kind with id.
func (a *App) Get(kind report.Kind, id string) (report.Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if rec, ok := a.find(kind, id); ok {
		return rec, nil
	}
	return nil, errors.Wrapf(report.ErrNotFound, "%s %q", kind, id)
}

// Close cancels the in-flight writes and pending timers, then waits for them to stop.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.cancel()
	for t := range a.timers {
		if t.Stop() {
			a.wg.Done()
		}
	}
	a.timers = make(map[*time.Timer]struct{})
	a.mu.Unlock()

	a.wg.Wait()
}

// Helpers below expect a.mu to be held.

func (a *App) setStatus(status SyncStatus, err error) {
	a.status = status
	a.lastErr = err
	a.opts.Observer.StatusChanged(status)
}

// nextFetch numbers a fetch that is about to start.
func (a *App) nextFetch() uint64 {
	a.fetchSeq++
	return a.fetchSeq
}

// schedule runs fn after d unless the App is closed first.
func (a *App) schedule(d time.Duration, fn func()) {
	if a.closed {
		return
	}
	a.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer a.wg.Done()
		a.mu.Lock()
		_, live := a.timers[t]
		delete(a.timers, t)
		a.mu.Unlock()
		if live {
			fn()
		}
	})
	a.timers[t] = struct{}{}
}

func (a *App) find(kind report.Kind, id string) (report.Record, bool) {
	switch kind {
	case report.KindAssembly:
		if r, ok := report.Find(a.assembly, id); ok {
			return r, true
		}
	case report.KindCaring:
		if r, ok := report.Find(a.caring, id); ok {
			return r, true
		}
	}
	return nil, false
}

func (a *App) merge(rec report.Record) {
	switch r := rec.(type) {
	case report.Assembly:
		a.assembly = report.Merge(a.assembly, r)
	case report.Caring:
		a.caring = report.Merge(a.caring, r)
	}
}

func (a *App) remove(kind report.Kind, id string) {
	switch kind {
	case report.KindAssembly:
		a.assembly = report.Remove(a.assembly, id)
	case report.KindCaring:
		a.caring = report.Remove(a.caring, id)
	}
}

// replace swaps the list of kind for the rows of fetch seq. Local changes the store has not
// confirmed are merged back so they stay visible, and so are confirmed ones the fetch started
// too early to see.
func (a *App) replace(kind report.Kind, recs []report.Record, seq uint64) {
	switch kind {
	case report.KindAssembly:
		list := make([]report.Assembly, 0, len(recs))
		for _, rec := range recs {
			if r, ok := rec.(report.Assembly); ok {
				list = append(list, r)
			}
		}
		list = report.Dedupe(report.FilterAssembly(list))
		report.SortAssembly(list)
		a.assembly = list
	case report.KindCaring:
		list := make([]report.Caring, 0, len(recs))
		for _, rec := range recs {
			if r, ok := rec.(report.Caring); ok {
				list = append(list, r)
			}
		}
		list = report.Dedupe(list)
		report.SortCaring(list)
		a.caring = list
	}

	for _, w := range a.writes {
		if w.kind == kind {
			a.merge(w.current)
		}
	}
	for _, f := range a.unconfirmed {
		if f.kind == kind {
			a.merge(f.current)
		}
	}
	for id, c := range a.confirmed {
		if c.kind != kind {
			continue
		}
		if seq > c.seq {
			delete(a.confirmed, id)
			continue
		}
		a.merge(c.current)
	}
}

type nopObserver struct{}

func (nopObserver) StatusChanged(SyncStatus)        {}
func (nopObserver) WriteFinished(report.Kind, error) {}
func (nopObserver) UnconfirmedChanged(int)          {}
