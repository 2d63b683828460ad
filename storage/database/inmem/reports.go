package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/report"
)

var ErrOffline = errors.New("inmem: store offline")

// ReportStore is an in-memory report sheet: an append-only list of rows per kind.
// Fetch returns every row, duplicates included, like the remote sheet does.
type ReportStore struct {
	mu       sync.Mutex
	rows     map[report.Kind][]report.Record
	failures []error
	offline  bool
	latency  time.Duration
	appends  int
	fetches  int
}

func NewReportStore(seed ...report.Record) *ReportStore {
	s := &ReportStore{rows: make(map[report.Kind][]report.Record)}
	for _, rec := range seed {
		s.rows[rec.Kind()] = append(s.rows[rec.Kind()], rec)
	}
	return s
}

// FailNext makes the next n calls fail with err (ErrOffline when nil).
func (s *ReportStore) FailNext(n int, err error) {
	if err == nil {
		err = ErrOffline
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, err)
	}
}

// SetOffline makes every call fail until it is switched back.
func (s *ReportStore) SetOffline(offline bool) {
	s.mu.Lock()
	s.offline = offline
	s.mu.Unlock()
}

// SetLatency delays every call by d, or until the call's context is done.
func (s *ReportStore) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

func (s *ReportStore) Fetch(ctx context.Context, kind report.Kind) ([]report.Record, error) {
	if err := s.begin(ctx, &s.fetches); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]report.Record, len(s.rows[kind]))
	copy(rows, s.rows[kind])
	return rows, nil
}

func (s *ReportStore) Append(ctx context.Context, rec report.Record) error {
	if err := s.begin(ctx, &s.appends); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.Kind()] = append(s.rows[rec.Kind()], rec)
	return nil
}

// Rows returns the stored rows of kind.
func (s *ReportStore) Rows(kind report.Kind) []report.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]report.Record, len(s.rows[kind]))
	copy(rows, s.rows[kind])
	return rows
}

// Calls returns the number of Append and Fetch calls made.
func (s *ReportStore) Calls() (appends, fetches int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends, s.fetches
}

func (s *ReportStore) begin(ctx context.Context, counter *int) error {
	s.mu.Lock()
	*counter++
	latency, offline := s.latency, s.offline
	var failure error
	if len(s.failures) > 0 {
		failure, s.failures = s.failures[0], s.failures[1:]
	}
	s.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if failure != nil {
		return failure
	}
	if offline {
		return ErrOffline
	}
	return nil
}
