package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborline/storefront-backend/pkg/logger"
)

type fakeCartRetirer struct {
	markedAt     []time.Time
	purgeCutoffs []time.Time
	markCount    int64
	purgeCount   int64
	markErr      error
	purgeErr     error
}

func (f *fakeCartRetirer) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	f.markedAt = append(f.markedAt, now)
	return f.markCount, f.markErr
}

func (f *fakeCartRetirer) PurgeRetired(ctx context.Context, cutoff time.Time) (int64, error) {
	f.purgeCutoffs = append(f.purgeCutoffs, cutoff)
	return f.purgeCount, f.purgeErr
}

func newCartExpiryJobTest(t *testing.T, carts *fakeCartRetirer) *cartExpiryJob {
	t.Helper()
	jobIface, err := NewCartExpiryJob(CartExpiryJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Carts:      carts,
		PurgeAfter: 30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCartExpiryJob: %v", err)
	}
	job, ok := jobIface.(*cartExpiryJob)
	if !ok {
		t.Fatalf("expected cartExpiryJob, got %T", jobIface)
	}
	return job
}

func TestCartExpiryJobRunsBothSweeps(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	carts := &fakeCartRetirer{markCount: 4, purgeCount: 2}
	job := newCartExpiryJobTest(t, carts)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(carts.markedAt) != 1 || !carts.markedAt[0].Equal(now) {
		t.Fatalf("unexpected mark timestamps: %v", carts.markedAt)
	}
	wantCutoff := now.Add(-30 * 24 * time.Hour)
	if len(carts.purgeCutoffs) != 1 || !carts.purgeCutoffs[0].Equal(wantCutoff) {
		t.Fatalf("unexpected purge cutoffs: %v", carts.purgeCutoffs)
	}
}

func TestCartExpiryJobPurgesEvenWhenMarkFails(t *testing.T) {
	carts := &fakeCartRetirer{markErr: errors.New("deadlock")}
	job := newCartExpiryJobTest(t, carts)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(carts.purgeCutoffs) != 1 {
		t.Fatalf("expected purge sweep to run, got %d calls", len(carts.purgeCutoffs))
	}
}

func TestCartExpiryJobCombinesSweepErrors(t *testing.T) {
	carts := &fakeCartRetirer{
		markErr:  errors.New("mark failed"),
		purgeErr: errors.New("purge failed"),
	}
	job := newCartExpiryJobTest(t, carts)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewCartExpiryJobValidatesParams(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})

	if _, err := NewCartExpiryJob(CartExpiryJobParams{Carts: &fakeCartRetirer{}, PurgeAfter: time.Hour}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewCartExpiryJob(CartExpiryJobParams{Logger: logg, PurgeAfter: time.Hour}); err == nil {
		t.Fatal("expected carts error")
	}
	if _, err := NewCartExpiryJob(CartExpiryJobParams{Logger: logg, Carts: &fakeCartRetirer{}}); err == nil {
		t.Fatal("expected purge window error")
	}
}
