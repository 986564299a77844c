package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/mkarsten/ironlog/internal/platform/errors"
	"github.com/mkarsten/ironlog/internal/workout"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecords() []workout.Exercise {
	weight := 100.0
	return []workout.Exercise{
		{
			ID:          "rec-1",
			Name:        "Deadlift",
			Category:    workout.CategoryStrength,
			Subcategory: "deadlifts",
			Sets:        5,
			Reps:        5,
			Weight:      &weight,
			Date:        time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC),
			Notes:       "paused reps",
		},
		{
			ID:          "rec-2",
			Name:        "Morning Run",
			Category:    workout.CategoryCardio,
			Subcategory: "running",
			Sets:        1,
			Reps:        1,
			Date:        time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestRecordSetRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	records := sampleRecords()

	if err := store.SaveRecordSet(ctx, records); err != nil {
		t.Fatalf("save record set: %v", err)
	}
	loaded, err := store.LoadRecordSet(ctx)
	if err != nil {
		t.Fatalf("load record set: %v", err)
	}
	if len(loaded) != len(records) {
		t.Fatalf("loaded %d records, want %d", len(loaded), len(records))
	}
	for i := range records {
		if loaded[i].ID != records[i].ID {
			t.Fatalf("record %d id = %q, want %q", i, loaded[i].ID, records[i].ID)
		}
		if !loaded[i].Date.Equal(records[i].Date) {
			t.Fatalf("record %d date = %v, want %v", i, loaded[i].Date, records[i].Date)
		}
	}
	if loaded[0].Weight == nil || *loaded[0].Weight != 100.0 {
		t.Fatal("weight did not survive the round trip")
	}
	if loaded[1].Weight != nil {
		t.Fatal("expected absent weight to stay absent")
	}

	// Saving the loaded set must be idempotent.
	if err := store.SaveRecordSet(ctx, loaded); err != nil {
		t.Fatalf("re-save record set: %v", err)
	}
	again, err := store.LoadRecordSet(ctx)
	if err != nil {
		t.Fatalf("re-load record set: %v", err)
	}
	if len(again) != len(loaded) {
		t.Fatalf("re-loaded %d records, want %d", len(again), len(loaded))
	}
}

func TestLoadRecordSetEmptyWhenMissing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	records, err := store.LoadRecordSet(context.Background())
	if err != nil {
		t.Fatalf("load record set: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty set, got %d records", len(records))
	}
}

func TestLoadRecordSetCorruptData(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.put(ctx, keyExercises, []byte("{not json")); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	_, err := store.LoadRecordSet(ctx)
	if !errors.Is(err, apperrors.New(apperrors.CodeLocalDataCorrupt, "")) {
		t.Fatalf("expected CodeLocalDataCorrupt, got %v", err)
	}
}

func TestLoadRecordSetMissingRequiredFields(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.put(ctx, keyExercises, []byte(`[{"exerciseName":"Squat"}]`)); err != nil {
		t.Fatalf("seed payload: %v", err)
	}

	_, err := store.LoadRecordSet(ctx)
	if !errors.Is(err, apperrors.New(apperrors.CodeLocalDataCorrupt, "")) {
		t.Fatalf("expected CodeLocalDataCorrupt, got %v", err)
	}
}

func TestSessionMarkerLifecycle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	marker, err := store.LoadSessionMarker(ctx)
	if err != nil {
		t.Fatalf("load marker: %v", err)
	}
	if marker.Guest || marker.Authenticated() {
		t.Fatalf("expected zero marker, got %+v", marker)
	}

	if err := store.SaveSessionMarker(ctx, SessionMarker{Guest: true}); err != nil {
		t.Fatalf("save guest marker: %v", err)
	}
	marker, err = store.LoadSessionMarker(ctx)
	if err != nil {
		t.Fatalf("load marker: %v", err)
	}
	if !marker.Guest {
		t.Fatal("expected guest marker to survive")
	}

	authenticated := SessionMarker{UserID: "user-1", Email: "a@b.test", Token: "tok"}
	if err := store.SaveSessionMarker(ctx, authenticated); err != nil {
		t.Fatalf("save authenticated marker: %v", err)
	}
	marker, err = store.LoadSessionMarker(ctx)
	if err != nil {
		t.Fatalf("load marker: %v", err)
	}
	if !marker.Authenticated() || marker.Guest {
		t.Fatalf("expected authenticated marker, got %+v", marker)
	}
}

func TestClearSessionMarkerKeepsRecords(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if err := store.SaveRecordSet(ctx, sampleRecords()); err != nil {
		t.Fatalf("save record set: %v", err)
	}
	if err := store.SaveSessionMarker(ctx, SessionMarker{UserID: "user-1", Email: "a@b.test", Token: "tok"}); err != nil {
		t.Fatalf("save marker: %v", err)
	}
	if err := store.ClearSessionMarker(ctx); err != nil {
		t.Fatalf("clear marker: %v", err)
	}

	marker, err := store.LoadSessionMarker(ctx)
	if err != nil {
		t.Fatalf("load marker: %v", err)
	}
	if marker.Authenticated() {
		t.Fatal("expected marker cleared")
	}

	records, err := store.LoadRecordSet(ctx)
	if err != nil {
		t.Fatalf("load record set: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected record set untouched, got %d records", len(records))
	}
}

func TestMarkerSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tracker.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.SaveSessionMarker(ctx, SessionMarker{Guest: true}); err != nil {
		t.Fatalf("save marker: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	marker, err := reopened.LoadSessionMarker(ctx)
	if err != nil {
		t.Fatalf("load marker: %v", err)
	}
	if !marker.Guest {
		t.Fatal("expected guest marker to survive restart")
	}
}
