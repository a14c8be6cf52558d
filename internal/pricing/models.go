package pricing

import "strings"

// Fallback rates in USD per million tokens for models missing from the table.
const (
	FallbackPromptPerMillion     = 3.0
	FallbackCompletionPerMillion = 15.0

	DefaultUSDPerCredit = 0.01
)

type Source string

const (
	SourceTable    Source = "table"
	SourceFallback Source = "fallback"
)

// ModelRate is the USD price per million tokens for one model.
type ModelRate struct {
	PromptPerMillion     float64 `mapstructure:"prompt_per_million" json:"prompt_per_million" yaml:"prompt_per_million"`
	CompletionPerMillion float64 `mapstructure:"completion_per_million" json:"completion_per_million" yaml:"completion_per_million"`
}

// Table maps model names to their rates. It is read-only after NewTable, so
// it is safe for concurrent use.
type Table struct {
	rates map[string]ModelRate
}

// DefaultRates is the built-in table; config may extend or override it.
func DefaultRates() map[string]ModelRate {
	return map[string]ModelRate{
		"gpt-4o":       {PromptPerMillion: 2.50, CompletionPerMillion: 10.00},
		"gpt-4o-mini":  {PromptPerMillion: 0.15, CompletionPerMillion: 0.60},
		"gpt-4.1":      {PromptPerMillion: 2.00, CompletionPerMillion: 8.00},
		"gpt-4.1-mini": {PromptPerMillion: 0.40, CompletionPerMillion: 1.60},
		"gpt-4.1-nano": {PromptPerMillion: 0.10, CompletionPerMillion: 0.40},
		"o4-mini":      {PromptPerMillion: 1.10, CompletionPerMillion: 4.40},
	}
}

func NewTable(overrides map[string]ModelRate) *Table {
	rates := DefaultRates()
	for name, r := range overrides {
		rates[normalizeModel(name)] = r
	}
	return &Table{rates: rates}
}

// Rate looks up model, trying its dated snapshot prefix before falling back.
func (t *Table) Rate(model string) (ModelRate, Source) {
	name := normalizeModel(model)
	if r, ok := t.rates[name]; ok {
		return r, SourceTable
	}
	// "gpt-4o-2024-08-06" -> "gpt-4o"
	best := ""
	for k := range t.rates {
		if strings.HasPrefix(name, k+"-") && len(k) > len(best) {
			best = k
		}
	}
	if best != "" {
		return t.rates[best], SourceTable
	}
	return ModelRate{PromptPerMillion: FallbackPromptPerMillion, CompletionPerMillion: FallbackCompletionPerMillion}, SourceFallback
}

// Cost returns the USD cost of a call.
func (t *Table) Cost(model string, promptTokens, completionTokens int) (float64, Source) {
	r, src := t.Rate(model)
	return float64(promptTokens)/1e6*r.PromptPerMillion + float64(completionTokens)/1e6*r.CompletionPerMillion, src
}

func normalizeModel(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}
