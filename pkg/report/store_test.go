package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ardalan-sia/planar-traffic/pkg/simulation"
)

// newTestStore creates an in-memory store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }

	meta := RunMeta{Seed: 342125, SpawnSeed: 1 << 63, Nodes: 50, Edges: 71}
	id, err := s.StartRun(ctx, meta)
	assertNoError(t, err)
	if id == uuid.Nil {
		t.Fatal("expected a run ID")
	}

	run, err := s.GetRun(ctx, id)
	assertNoError(t, err)
	if run.ID != id || run.RunMeta != meta {
		t.Errorf("run = %+v, want id %s meta %+v", run, id, meta)
	}
	if !run.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, start)
	}
	if run.FinishedAt != nil {
		t.Error("unfinished run should have no FinishedAt")
	}
}

func TestGetUnknownRun(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetRun(context.Background(), uuid.New()); !errors.Is(err, ErrUnknownRun) {
		t.Errorf("expected ErrUnknownRun, got %v", err)
	}
	if err := s.FinishRun(context.Background(), uuid.New(), simulation.Stats{}); !errors.Is(err, ErrUnknownRun) {
		t.Errorf("expected ErrUnknownRun, got %v", err)
	}
}

func TestSamplesThroughRecorder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.StartRun(ctx, RunMeta{Nodes: 3})
	assertNoError(t, err)

	rec := s.Recorder(id)
	for i := 3; i >= 1; i-- {
		smp := simulation.Sample{Time: float64(i), Live: i, MaxPasses: 2 * i}
		smp.Stats.Spawned = 10 * i
		smp.Stats.JammedSteps = i
		assertNoError(t, rec.RecordSample(ctx, smp))
	}

	other, err := s.StartRun(ctx, RunMeta{})
	assertNoError(t, err)
	assertNoError(t, s.RecordSample(ctx, other, simulation.Sample{Time: 0.5}))

	got, err := s.Samples(ctx, id)
	assertNoError(t, err)
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	for i, smp := range got {
		want := i + 1
		if smp.Time != float64(want) || smp.Live != want || smp.MaxPasses != 2*want {
			t.Errorf("sample %d = %+v", i, smp)
		}
		if smp.Stats.Spawned != 10*want || smp.Stats.JammedSteps != want {
			t.Errorf("sample %d stats = %+v", i, smp.Stats)
		}
	}
}

func TestFinishRunStoresHistogram(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.StartRun(ctx, RunMeta{Nodes: 10})
	assertNoError(t, err)

	var st simulation.Stats
	st.Arrived = 4
	st.TotalHops = 10
	st.HopHistogram[2] = 3
	st.HopHistogram[4] = 1
	assertNoError(t, s.FinishRun(ctx, id, st))

	hist, err := s.Histogram(ctx, id)
	assertNoError(t, err)
	if hist != st.HopHistogram {
		t.Errorf("histogram = %v, want %v", hist, st.HopHistogram)
	}

	run, err := s.GetRun(ctx, id)
	assertNoError(t, err)
	if run.FinishedAt == nil || run.Arrived != 4 || run.AvgHops != 2.5 {
		t.Errorf("run = %+v", run)
	}

	// Finishing again replaces the buckets rather than duplicating them.
	st.HopHistogram[2] = 5
	assertNoError(t, s.FinishRun(ctx, id, st))
	hist, err = s.Histogram(ctx, id)
	assertNoError(t, err)
	if hist[2] != 5 {
		t.Errorf("bucket 2 = %d, want 5", hist[2])
	}
}
