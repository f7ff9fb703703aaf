package sqlite

import (
	"context"
	"testing"
	"time"
)

func TestMarkStore_LastCutoff_Empty(t *testing.T) {
	db := openTestDB(t)
	store := NewMarkStore(db)

	cutoff, err := store.LastCutoff(context.Background())
	if err != nil {
		t.Fatalf("LastCutoff() error = %v", err)
	}
	if cutoff != nil {
		t.Errorf("LastCutoff() = %v; want nil before any boundary run", cutoff)
	}
}

func TestMarkStore_SetAndRead(t *testing.T) {
	db := openTestDB(t)
	store := NewMarkStore(db)

	want := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	if err := store.SetLastCutoff(context.Background(), want); err != nil {
		t.Fatalf("SetLastCutoff() error = %v", err)
	}

	got, err := store.LastCutoff(context.Background())
	if err != nil {
		t.Fatalf("LastCutoff() error = %v", err)
	}
	if got == nil || !got.Equal(want) {
		t.Errorf("LastCutoff() = %v; want %v", got, want)
	}
}

func TestMarkStore_SetOverwrites(t *testing.T) {
	db := openTestDB(t)
	store := NewMarkStore(db)

	first := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	if err := store.SetLastCutoff(context.Background(), first); err != nil {
		t.Fatalf("SetLastCutoff() error = %v", err)
	}
	if err := store.SetLastCutoff(context.Background(), second); err != nil {
		t.Fatalf("second SetLastCutoff() error = %v", err)
	}

	got, err := store.LastCutoff(context.Background())
	if err != nil {
		t.Fatalf("LastCutoff() error = %v", err)
	}
	if got == nil || !got.Equal(second) {
		t.Errorf("LastCutoff() = %v; want %v", got, second)
	}
}
