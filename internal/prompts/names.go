package prompts

type PromptName string

const (
	PromptTopicDiscovery PromptName = "topic_discovery"
	PromptFlashcards     PromptName = "flashcards"
	PromptQuestions      PromptName = "questions"
	PromptExplanations   PromptName = "explanations"
	PromptVocabulary     PromptName = "vocabulary"
)
