package prompts

const jsonOnly = "Respond with a JSON array only. No prose, no markdown fences."

func init() {
	RegisterAll()
}

func RegisterAll() {
	RegisterSpec(Spec{
		Name:    PromptTopicDiscovery,
		Version: 1,
		Schema:  TopicsSchema,
		System: `You split study documents into the distinct topics a student must learn.
` + jsonOnly,
		User: `Document: {{.DocumentTitle}}
List at most {{.MaxTopics}} topics in the order they appear. Each item has "title" and a one-sentence "summary".

TEXT:
{{.Excerpt}}`,
		Validators: []Validator{RequireExcerpt},
	})

	RegisterSpec(Spec{
		Name:    PromptFlashcards,
		Version: 1,
		Schema:  FlashcardsSchema,
		System: `You write concise flashcards for self-study.
` + jsonOnly,
		User: `Topic: {{.TopicTitle}}
{{.TopicSummary}}
Write {{.Count}} flashcards. Each item has "front" (a question or cue) and "back" (the answer).
{{if .Existing}}Avoid repeating these:
{{.Existing}}
{{end}}
SOURCE:
{{.Excerpt}}`,
		Validators: []Validator{RequireTopic, RequireCount},
	})

	RegisterSpec(Spec{
		Name:    PromptQuestions,
		Version: 1,
		Schema:  QuestionsSchema,
		System: `You write multiple-choice quiz questions that test understanding, not recall of wording.
` + jsonOnly,
		User: `Topic: {{.TopicTitle}}
{{.TopicSummary}}
Write {{.Count}} questions. Each item has "prompt", "choices" (2 to 6 strings), "answer_index" (0-based) and a short "rationale".
{{if .Existing}}Do not repeat these questions:
{{.Existing}}
{{end}}
SOURCE:
{{.Excerpt}}`,
		Validators: []Validator{RequireTopic, RequireCount},
	})

	RegisterSpec(Spec{
		Name:    PromptExplanations,
		Version: 1,
		Schema:  ExplanationsSchema,
		System: `You explain difficult concepts plainly, with one concrete example each.
` + jsonOnly,
		User: `Topic: {{.TopicTitle}}
{{.TopicSummary}}
Explain the {{.Count}} hardest concepts in this topic. Each item has "concept" and "body".
SOURCE:
{{.Excerpt}}`,
		Validators: []Validator{RequireTopic, RequireCount},
	})

	RegisterSpec(Spec{
		Name:    PromptVocabulary,
		Version: 1,
		Schema:  VocabularySchema,
		System: `You build glossaries of domain terms for students.
` + jsonOnly,
		User: `Document: {{.DocumentTitle}}
List up to {{.Count}} key terms with definitions. Each item has "term" and "definition".
{{if .Existing}}Topics covered:
{{.Existing}}
{{end}}
TEXT:
{{.Excerpt}}`,
		Validators: []Validator{RequireExcerpt, RequireCount},
	})
}
