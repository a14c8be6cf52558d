package prompts

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	DocumentTitle string
	// Extracted document text, already trimmed to the model budget.
	Excerpt string
	MaxTopics int

	TopicTitle   string
	TopicSummary string
	Count        int

	// Items already generated, one per line, so regenerations avoid repeats.
	Existing string
}
