package storage

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cupart/internal/model"
)

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	older := model.Run{VersionedRecord: Versioned(), ID: "run-a", CreatedAtUTC: "2026-01-01T00:00:00Z"}
	newer := model.Run{VersionedRecord: Versioned(), ID: "run-b", CreatedAtUTC: "2026-02-01T00:00:00Z", FinalScore: 40}
	for _, run := range []model.Run{older, newer} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	got, ok, err := store.GetRun(ctx, "run-b")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%t err=%v", ok, err)
	}
	if got.FinalScore != 40 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if _, ok, _ := store.GetRun(ctx, "missing"); ok {
		t.Fatal("expected missing run")
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-b" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
}

func TestMemoryStoreValidationHistoryIsCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.ValidationRecord{{
		VersionedRecord: Versioned(),
		Generation:      0,
		Score:           50,
		Correct:         []uint64{1, 2},
		Totals:          []uint64{2, 4},
	}}
	if err := store.SaveValidationHistory(ctx, "run-1", input); err != nil {
		t.Fatalf("save history: %v", err)
	}
	input[0].Correct[0] = 99

	output, ok, err := store.GetValidationHistory(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%t err=%v", ok, err)
	}
	if diff := cmp.Diff([]uint64{1, 2}, output[0].Correct); diff != "" {
		t.Fatalf("stored history aliased caller slice (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreBestPolicyPerClass(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, class := range []string{"QT", "NS"} {
		record := model.PolicyRecord{VersionedRecord: Versioned(), RunID: "run-1", Class: class, DOT: "digraph " + class + " {}"}
		if err := store.SaveBestPolicy(ctx, record); err != nil {
			t.Fatalf("save policy: %v", err)
		}
	}
	got, ok, err := store.GetBestPolicy(ctx, "run-1", "NS")
	if err != nil || !ok {
		t.Fatalf("get policy: ok=%t err=%v", ok, err)
	}
	if got.DOT != "digraph NS {}" {
		t.Fatalf("unexpected policy: %+v", got)
	}
	if _, ok, _ := store.GetBestPolicy(ctx, "run-2", "NS"); ok {
		t.Fatal("expected missing policy for unknown run")
	}
}
