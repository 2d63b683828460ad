package appstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skmethodistpj/laporan/core/report"
	inmemdb "github.com/skmethodistpj/laporan/storage/database/inmem"
)

const (
	testNavigateDelay  = 20 * time.Millisecond
	testReconcileDelay = 30 * time.Millisecond
	waitFor            = 2 * time.Second
	tick               = 5 * time.Millisecond
)

type recordingObserver struct {
	mu          sync.Mutex
	statuses    []SyncStatus
	writes      []error
	unconfirmed int
}

func (o *recordingObserver) StatusChanged(s SyncStatus) {
	o.mu.Lock()
	o.statuses = append(o.statuses, s)
	o.mu.Unlock()
}

func (o *recordingObserver) WriteFinished(_ report.Kind, err error) {
	o.mu.Lock()
	o.writes = append(o.writes, err)
	o.mu.Unlock()
}

func (o *recordingObserver) UnconfirmedChanged(n int) {
	o.mu.Lock()
	o.unconfirmed = n
	o.mu.Unlock()
}

func (o *recordingObserver) Statuses() []SyncStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]SyncStatus(nil), o.statuses...)
}

func newTestApp(t *testing.T, seed ...report.Record) (*App, *inmemdb.ReportStore, *recordingObserver) {
	store := inmemdb.NewReportStore(seed...)
	obs := new(recordingObserver)
	app := New(store, Options{
		NavigateDelay:  testNavigateDelay,
		ReconcileDelay: testReconcileDelay,
		Observer:       obs,
	})
	t.Cleanup(app.Close)
	return app, store, obs
}

func assembly(id, week, tema string) report.Assembly {
	return report.Assembly{ID: id, Tarikh: "2026-01-19", Minggu: week, Tema: tema, DisediakanOleh: "TAI SEE NEE", Images: report.Images{}}
}

func caring(id, date string) report.Caring {
	return report.Caring{ID: id, Tarikh: date, Sasaran: "Murid", DisediakanOleh: "WONG AI WEE", Images: report.Images{}}
}

func statusIs(app *App, want SyncStatus) func() bool {
	return func() bool {
		s, _ := app.Status()
		return s == want
	}
}

func ids[R report.Record](recs []R) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.RecordID()
	}
	return out
}

func TestApp_Load(t *testing.T) {
	app, _, obs := newTestApp(t,
		assembly("a", "1", "old"),
		assembly("b", "3", ""),
		assembly("blank", "", ""),
		assembly("a", "2", "new"),
		caring("x", "2026-01-20"),
		caring("y", "2026-02-03"),
	)

	s, _ := app.Status()
	assert.Equal(t, StatusIdle, s)

	require.NoError(t, app.Load(context.Background()))

	snap := app.Snapshot()
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, []string{"b", "a"}, ids(snap.Assembly), "deduped, filtered and sorted by week")
	assert.Equal(t, "new", snap.Assembly[1].Tema, "last row wins")
	assert.Equal(t, []string{"y", "x"}, ids(snap.Caring))
	assert.False(t, snap.LoadedAt.IsZero())
	assert.Equal(t, []SyncStatus{StatusLoading, StatusSuccess}, obs.Statuses())
}

func TestApp_Load_failureKeepsLists(t *testing.T) {
	app, store, _ := newTestApp(t, assembly("a", "1", ""))
	require.NoError(t, app.Load(context.Background()))

	store.FailNext(1, nil)
	err := app.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, inmemdb.ErrOffline))

	snap := app.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Contains(t, snap.Error, "offline")
	assert.Equal(t, []string{"a"}, ids(snap.Assembly))
}

func TestApp_LoadKind_noLoadingFlash(t *testing.T) {
	app, _, obs := newTestApp(t, caring("x", "2026-01-20"))

	require.NoError(t, app.LoadKind(context.Background(), report.KindCaring))
	assert.Equal(t, []SyncStatus{StatusSuccess}, obs.Statuses())
	assert.Equal(t, []string{"x"}, ids(app.Caring()))
	assert.Empty(t, app.Assembly())
}

func TestApp_Save_newRecordRoundTrip(t *testing.T) {
	app, store, _ := newTestApp(t, assembly("a", "1", ""))
	require.NoError(t, app.Load(context.Background()))

	rec := assembly("n", "2", "Peraturan Sekolah")
	receipt, err := app.Save(context.Background(), "", rec)
	require.NoError(t, err)
	assert.Equal(t, Receipt{
		ID:              "n",
		Kind:            report.KindAssembly,
		Status:          StatusLoading,
		NavigateTo:      ViewList,
		NavigateAfter:   testNavigateDelay,
		NavigateAfterMS: testNavigateDelay.Milliseconds(),
	}, receipt)

	// optimistic: visible before the write completes
	assert.Equal(t, []string{"n", "a"}, ids(app.Assembly()))

	assert.Eventually(t, statusIs(app, StatusSuccess), waitFor, tick)
	assert.Eventually(t, func() bool {
		_, fetches := store.Calls()
		return fetches >= 3 // two for the initial load, one reconcile
	}, waitFor, tick)

	got, err := app.Get(report.KindAssembly, "n")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Len(t, store.Rows(report.KindAssembly), 2)
	assert.Empty(t, app.Unconfirmed())
}

func TestApp_Save_editReplacesInPlace(t *testing.T) {
	app, store, _ := newTestApp(t, assembly("a", "1", "lama"), assembly("b", "2", ""))
	require.NoError(t, app.Load(context.Background()))

	_, err := app.Save(context.Background(), "", assembly("a", "1", "baru"))
	require.NoError(t, err)

	list := app.Assembly()
	assert.Equal(t, []string{"b", "a"}, ids(list))
	assert.Equal(t, "baru", list[1].Tema)

	// the store now holds two rows for "a"; reconciling leaves one, with the last fields
	assert.Eventually(t, func() bool { return len(store.Rows(report.KindAssembly)) == 3 }, waitFor, tick)
	assert.Eventually(t, func() bool {
		_, fetches := store.Calls()
		return fetches >= 3
	}, waitFor, tick)
	time.Sleep(tick)

	list = app.Assembly()
	assert.Equal(t, []string{"b", "a"}, ids(list))
	assert.Equal(t, "baru", list[1].Tema)
}

func TestApp_Save_offline(t *testing.T) {
	app, store, obs := newTestApp(t)
	require.NoError(t, app.Load(context.Background()))
	_, err := app.Login(Session{ID: "s1", Username: "guru"})
	require.NoError(t, err)
	require.NoError(t, app.Navigate("s1", ViewForm))

	store.SetOffline(true)
	rec := caring("x", "2026-01-20")
	receipt, err := app.Save(context.Background(), "s1", rec)
	require.NoError(t, err)
	assert.Equal(t, ViewCaringList, receipt.NavigateTo)

	// the local list updates immediately
	assert.Equal(t, []string{"x"}, ids(app.Caring()))

	// the view moves after the delay and the status ends as ERROR
	assert.Eventually(t, func() bool {
		s, _ := app.Session("s1")
		return s.View == ViewCaringList
	}, waitFor, tick)
	assert.Eventually(t, statusIs(app, StatusError), waitFor, tick)

	unconfirmed := app.Unconfirmed()
	require.Len(t, unconfirmed, 1)
	assert.Equal(t, "x", unconfirmed[0].ID)
	assert.True(t, unconfirmed[0].IsNew)
	assert.Contains(t, unconfirmed[0].Error, "offline")
	assert.Equal(t, []string{"x"}, app.Snapshot().Unconfirmed)

	// nothing is rolled back and nothing is retried
	time.Sleep(3 * testReconcileDelay)
	appends, fetches := store.Calls()
	assert.Equal(t, 1, appends)
	assert.Equal(t, 2, fetches, "no reconcile after a failed write")
	assert.Equal(t, []string{"x"}, ids(app.Caring()))

	obs.mu.Lock()
	assert.Equal(t, 1, obs.unconfirmed)
	require.Len(t, obs.writes, 1)
	assert.Error(t, obs.writes[0])
	obs.mu.Unlock()
}

func TestApp_unconfirmedSurvivesReload(t *testing.T) {
	app, store, _ := newTestApp(t, assembly("a", "1", ""))
	require.NoError(t, app.Load(context.Background()))

	store.FailNext(1, nil)
	_, err := app.Save(context.Background(), "", assembly("n", "2", ""))
	require.NoError(t, err)
	assert.Eventually(t, statusIs(app, StatusError), waitFor, tick)

	require.NoError(t, app.Load(context.Background()))
	assert.Equal(t, []string{"n", "a"}, ids(app.Assembly()))
	assert.Len(t, app.Unconfirmed(), 1)
}

// heldStore holds the first Fetch of kind after it has read the rows, until release is closed.
type heldStore struct {
	*inmemdb.ReportStore
	kind    report.Kind
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (s *heldStore) Fetch(ctx context.Context, kind report.Kind) ([]report.Record, error) {
	rows, err := s.ReportStore.Fetch(ctx, kind)
	if kind == s.kind {
		s.once.Do(func() {
			close(s.reached)
			<-s.release
		})
	}
	return rows, err
}

func TestApp_Load_keepsWriteConfirmedDuringFetch(t *testing.T) {
	store := &heldStore{
		ReportStore: inmemdb.NewReportStore(),
		kind:        report.KindAssembly,
		reached:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	app := New(store, Options{NavigateDelay: testNavigateDelay, ReconcileDelay: time.Hour})
	t.Cleanup(app.Close)

	loaded := make(chan error, 1)
	go func() { loaded <- app.Load(context.Background()) }()
	<-store.reached

	_, err := app.Save(context.Background(), "", assembly("x1", "3", ""))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(app.Snapshot().Pending) == 0 }, waitFor, tick)
	require.Len(t, store.Rows(report.KindAssembly), 1)

	close(store.release)
	require.NoError(t, <-loaded)
	assert.Equal(t, []string{"x1"}, ids(app.Assembly()), "the fetch started before the write was confirmed")

	// a fetch started after the confirmation reads the row back and takes over
	require.NoError(t, app.LoadKind(context.Background(), report.KindAssembly))
	assert.Equal(t, []string{"x1"}, ids(app.Assembly()))
	app.mu.RLock()
	assert.Empty(t, app.confirmed)
	app.mu.RUnlock()
}

func TestApp_Rollback(t *testing.T) {
	app, store, _ := newTestApp(t, assembly("a", "1", "asal"))
	require.NoError(t, app.Load(context.Background()))
	store.SetOffline(true)

	t.Run("edit restores the confirmed value", func(t *testing.T) {
		_, err := app.Save(context.Background(), "", assembly("a", "1", "ubah"))
		require.NoError(t, err)
		assert.Eventually(t, func() bool { return len(app.Unconfirmed()) == 1 }, waitFor, tick)

		prev, err := app.Rollback("a")
		require.NoError(t, err)
		assert.Equal(t, "asal", prev.(report.Assembly).Tema)
		assert.Equal(t, "asal", app.Assembly()[0].Tema)
		assert.Empty(t, app.Unconfirmed())
	})

	t.Run("two failed edits restore the value before both", func(t *testing.T) {
		for _, tema := range []string{"satu", "dua"} {
			_, err := app.Save(context.Background(), "", assembly("a", "1", tema))
			require.NoError(t, err)
			assert.Eventually(t, func() bool { return len(app.Unconfirmed()) == 1 }, waitFor, tick)
		}
		_, err := app.Rollback("a")
		require.NoError(t, err)
		assert.Equal(t, "asal", app.Assembly()[0].Tema)
	})

	t.Run("new record is removed", func(t *testing.T) {
		_, err := app.Save(context.Background(), "", assembly("n", "2", ""))
		require.NoError(t, err)
		assert.Eventually(t, func() bool { return len(app.Unconfirmed()) == 1 }, waitFor, tick)

		prev, err := app.Rollback("n")
		require.NoError(t, err)
		assert.Nil(t, prev)
		assert.Equal(t, []string{"a"}, ids(app.Assembly()))
	})

	t.Run("confirmed record cannot be rolled back", func(t *testing.T) {
		_, err := app.Rollback("a")
		assert.True(t, errors.Is(err, ErrNotUnconfirmed))
	})
}

func TestApp_Save_supersedesInFlightWrite(t *testing.T) {
	app, store, _ := newTestApp(t)
	store.SetLatency(100 * time.Millisecond)

	_, err := app.Save(context.Background(), "", assembly("a", "1", "v1"))
	require.NoError(t, err)
	_, err = app.Save(context.Background(), "", assembly("a", "1", "v2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, app.Snapshot().Pending)

	assert.Eventually(t, statusIs(app, StatusSuccess), waitFor, tick)
	rows := store.Rows(report.KindAssembly)
	require.Len(t, rows, 1, "the first write was cancelled")
	assert.Equal(t, "v2", rows[0].(report.Assembly).Tema)
	assert.Empty(t, app.Unconfirmed())
}

func TestApp_Save_pointerRecord(t *testing.T) {
	app, _, _ := newTestApp(t)
	rec := caring("x", "2026-01-20")

	_, err := app.Save(context.Background(), "", &rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(app.Caring()))
}

func TestApp_Close(t *testing.T) {
	app, store, _ := newTestApp(t)
	store.SetLatency(time.Minute)

	_, err := app.Save(context.Background(), "", assembly("a", "1", ""))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		app.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Close did not cancel the in-flight write")
	}

	assert.Empty(t, app.Unconfirmed(), "a write cancelled by Close is not a failure")
	_, err = app.Save(context.Background(), "", assembly("b", "2", ""))
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, ErrClosed, app.Load(context.Background()))
}

func TestApp_Save_cancelledRequest(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := app.Save(ctx, "", assembly("a", "1", ""))
	assert.Equal(t, context.Canceled, err)
	assert.Empty(t, app.Assembly())
}

func TestApp_Login_evictsExpiredSessions(t *testing.T) {
	app := New(inmemdb.NewReportStore(), Options{SessionTTL: time.Hour})
	t.Cleanup(app.Close)

	_, err := app.Login(Session{ID: "lama", Username: "guru", LoggedInAt: time.Now().Add(-2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 1, app.Sessions(), "kept until the next login")

	// past its TTL, the old session is already unusable
	_, ok := app.Session("lama")
	assert.False(t, ok)
	assert.Equal(t, ErrSessionNotFound, app.Navigate("lama", ViewTakwim))

	// the next login drops it from the table
	_, err = app.Login(Session{ID: "baru", Username: "guru", LoggedInAt: time.Now().Add(-30 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 1, app.Sessions())
	_, ok = app.Session("baru")
	assert.True(t, ok)
}
