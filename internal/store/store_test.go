package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tenkigen/tenkigen/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGeneration(id, location string, at time.Time) Generation {
	return Generation{
		ID:               id,
		LocationName:     location,
		GeneratedAt:      at,
		FinalComment:     "雨が降りやすい天気です　傘をお持ちください",
		WeatherComment:   "雨が降りやすい天気です",
		AdviceComment:    "傘をお持ちください",
		WeatherCondition: "rain",
		Temperature:      18.5,
		Precipitation:    2.0,
		SelectionReason:  "llm arbitration",
		UsedLLM:          true,
		LLMProvider:      "openai",
		RetryCount:       1,
		ExecutionTimeMS:  840,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	v, err := s.MigrationVersion()
	if err != nil {
		t.Fatal(err)
	}
	if want := migrations[len(migrations)-1].Version; v != want {
		t.Errorf("version = %d, want %d", v, want)
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 15, 9, 0, 0, 0, models.JST)

	for i, id := range []string{"a", "b", "c"} {
		g := sampleGeneration(id, "東京", base.Add(time.Duration(i)*time.Hour))
		if err := s.Record(ctx, g); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}
	if err := s.Record(ctx, sampleGeneration("x", "大阪", base)); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, "東京", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("order = %s, %s; want c, b", got[0].ID, got[1].ID)
	}
	if !got[0].UsedLLM || got[0].LLMProvider != "openai" {
		t.Errorf("llm fields lost: %+v", got[0])
	}
	if !got[0].GeneratedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("generated_at = %v", got[0].GeneratedAt)
	}
}

func TestRecordDuplicateIDIgnored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	g := sampleGeneration("dup", "東京", time.Now())

	if err := s.Record(ctx, g); err != nil {
		t.Fatal(err)
	}
	g.FinalComment = "changed"
	if err := s.Record(ctx, g); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}

	got, err := s.Recent(ctx, "東京", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].FinalComment == "changed" {
		t.Error("duplicate id overwrote original row")
	}
}

func TestLastComment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.LastComment(ctx, "東京")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("empty store returned %q", got)
	}

	base := time.Now()
	older := sampleGeneration("old", "東京", base.Add(-time.Hour))
	older.FinalComment = "older comment"
	if err := s.Record(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, sampleGeneration("new", "東京", base)); err != nil {
		t.Fatal(err)
	}

	got, err = s.LastComment(ctx, "東京")
	if err != nil {
		t.Fatal(err)
	}
	if got != sampleGeneration("new", "東京", base).FinalComment {
		t.Errorf("LastComment = %q", got)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now()

	s.Record(ctx, sampleGeneration("old", "東京", base.Add(-48*time.Hour)))
	s.Record(ctx, sampleGeneration("new", "東京", base))

	n, err := s.Prune(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	got, _ := s.Recent(ctx, "東京", 10)
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("remaining rows = %+v", got)
	}
}
