package pricing

import (
	"math"
	"testing"
)

func TestEstimateGolden(t *testing.T) {
	b := Estimate(40, 10, TierMedium)
	if b.Processing != 60 {
		t.Fatalf("processing: want=60 got=%d", b.Processing)
	}
	if b.Total != 131 {
		t.Fatalf("total: want=131 got=%d", b.Total)
	}
}

func TestTierForPages(t *testing.T) {
	cases := []struct {
		pages int
		want  Tier
	}{
		{1, TierSimple},
		{50, TierSimple},
		{51, TierMedium},
		{100, TierMedium},
		{101, TierComplex},
	}
	for _, tc := range cases {
		if got := TierForPages(tc.pages); got != tc.want {
			t.Fatalf("TierForPages(%d): want=%s got=%s", tc.pages, tc.want, got)
		}
	}
}

func TestHeuristicTopicCount(t *testing.T) {
	if got := HeuristicTopicCount(0); got != 1 {
		t.Fatalf("0 pages: want=1 got=%d", got)
	}
	if got := HeuristicTopicCount(3); got != 1 {
		t.Fatalf("3 pages: want=1 got=%d", got)
	}
	if got := HeuristicTopicCount(40); got != 10 {
		t.Fatalf("40 pages: want=10 got=%d", got)
	}
}

func TestProcessingCreditsRoundsUp(t *testing.T) {
	if got := ProcessingCredits(51, TierMedium); got != 77 {
		t.Fatalf("51 pages medium: want=77 got=%d", got)
	}
}

func TestEstimateForPages(t *testing.T) {
	// 12 pages: simple tier, 3 topics -> 12 + 21 + 1
	if got := EstimateForPages(12).Total; got != 34 {
		t.Fatalf("12 pages: want=34 got=%d", got)
	}
}

func TestTableCostFallbackAndPrefix(t *testing.T) {
	tbl := NewTable(map[string]ModelRate{"house-model": {PromptPerMillion: 1, CompletionPerMillion: 2}})

	cost, src := tbl.Cost("unknown-model", 1_000_000, 1_000_000)
	if src != SourceFallback {
		t.Fatalf("source: want=fallback got=%s", src)
	}
	if math.Abs(cost-18.0) > 1e-9 {
		t.Fatalf("fallback cost: want=18 got=%f", cost)
	}

	cost, src = tbl.Cost("House-Model", 500_000, 0)
	if src != SourceTable || math.Abs(cost-0.5) > 1e-9 {
		t.Fatalf("override: want=0.5/table got=%f/%s", cost, src)
	}

	_, src = tbl.Cost("gpt-4o-mini-2024-07-18", 10, 10)
	if src != SourceTable {
		t.Fatalf("dated snapshot: want=table got=%s", src)
	}
}

func TestTableOverridesStayLocal(t *testing.T) {
	a := NewTable(map[string]ModelRate{"GPT-4o": {PromptPerMillion: 99, CompletionPerMillion: 99}})
	b := NewTable(nil)

	if r, _ := a.Rate("gpt-4o"); r.PromptPerMillion != 99 {
		t.Fatalf("override: want=99 got=%v", r.PromptPerMillion)
	}
	if r, _ := b.Rate("gpt-4o"); r.PromptPerMillion != DefaultRates()["gpt-4o"].PromptPerMillion {
		t.Fatalf("override leaked into another table: got=%v", r)
	}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				a.Cost("gpt-4o-2024-08-06", j, j)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
