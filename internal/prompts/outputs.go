package prompts

// Decoded model outputs, one element per generated item.

type TopicDraft struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type FlashcardDraft struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type QuestionDraft struct {
	Prompt      string   `json:"prompt"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answer_index"`
	Rationale   string   `json:"rationale"`
}

type ExplanationDraft struct {
	Concept string `json:"concept"`
	Body    string `json:"body"`
}

type VocabularyDraft struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}
