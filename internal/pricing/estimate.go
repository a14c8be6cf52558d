// Package pricing holds the pure credit and cost policy: how many credits a
// document is expected to consume and what a model call costs in dollars.
package pricing

import "math"

type Tier string

const (
	TierSimple  Tier = "simple"
	TierMedium  Tier = "medium"
	TierComplex Tier = "complex"
)

// Per-stage credit costs.
const (
	CreditsPerPage        = 1
	FlashcardsPerTopic    = 2
	QuestionsPerTopic     = 3
	ExplanationsPerTopic  = 2
	VocabularyPerDocument = 1

	// PerTopicCredits is the cost of one fully generated topic.
	PerTopicCredits = FlashcardsPerTopic + QuestionsPerTopic + ExplanationsPerTopic
)

// Fixed estimates for on-demand generation against an existing topic or document.
const (
	MoreQuestionsCredits          = 3
	RegenerateFlashcardsCredits   = FlashcardsPerTopic
	RegenerateExplanationsCredits = ExplanationsPerTopic
	RegenerateVocabularyCredits   = VocabularyPerDocument
)

const (
	simpleMaxPages = 50
	mediumMaxPages = 100
	pagesPerTopic  = 4
)

// TierForPages classifies a document by length.
func TierForPages(pages int) Tier {
	switch {
	case pages <= simpleMaxPages:
		return TierSimple
	case pages <= mediumMaxPages:
		return TierMedium
	default:
		return TierComplex
	}
}

// Multiplier is the processing cost multiplier for t.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierMedium:
		return 1.5
	case TierComplex:
		return 2.0
	default:
		return 1.0
	}
}

// HeuristicTopicCount is the topic count assumed before analysis has run.
func HeuristicTopicCount(pages int) int {
	n := pages / pagesPerTopic
	if n < 1 {
		return 1
	}
	return n
}

// Breakdown is the credit estimate split by stage.
type Breakdown struct {
	Pages        int  `json:"pages"`
	Topics       int  `json:"topics"`
	Tier         Tier `json:"tier"`
	Processing   int  `json:"processing"`
	Flashcards   int  `json:"flashcards"`
	Questions    int  `json:"questions"`
	Vocabulary   int  `json:"vocabulary"`
	Explanations int  `json:"explanations"`
	Total        int  `json:"total"`
}

// ProcessingCredits is the page-proportional part of an estimate.
func ProcessingCredits(pages int, tier Tier) int {
	if pages < 0 {
		pages = 0
	}
	return int(math.Ceil(float64(pages*CreditsPerPage) * tier.Multiplier()))
}

// Estimate computes the credit estimate for a document.
func Estimate(pages, topics int, tier Tier) Breakdown {
	if topics < 0 {
		topics = 0
	}
	b := Breakdown{
		Pages:        pages,
		Topics:       topics,
		Tier:         tier,
		Processing:   ProcessingCredits(pages, tier),
		Flashcards:   FlashcardsPerTopic * topics,
		Questions:    QuestionsPerTopic * topics,
		Vocabulary:   VocabularyPerDocument,
		Explanations: ExplanationsPerTopic * topics,
	}
	b.Total = b.Processing + b.Flashcards + b.Questions + b.Vocabulary + b.Explanations
	return b
}

// EstimateForPages uses the page-derived tier and heuristic topic count.
func EstimateForPages(pages int) Breakdown {
	return Estimate(pages, HeuristicTopicCount(pages), TierForPages(pages))
}
