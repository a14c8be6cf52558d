package prompts

func StringSchema() map[string]any {
	return map[string]any{"type": "string", "minLength": 1}
}

func ArrayOf(item map[string]any) map[string]any {
	return map[string]any{
		"type":     "array",
		"items":    item,
		"minItems": 1,
	}
}

func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func TopicsSchema() map[string]any {
	return ArrayOf(ObjectSchema(map[string]any{
		"title":   StringSchema(),
		"summary": map[string]any{"type": "string"},
	}, "title"))
}

func FlashcardsSchema() map[string]any {
	return ArrayOf(ObjectSchema(map[string]any{
		"front": StringSchema(),
		"back":  StringSchema(),
	}, "front", "back"))
}

func QuestionsSchema() map[string]any {
	return ArrayOf(ObjectSchema(map[string]any{
		"prompt": StringSchema(),
		"choices": map[string]any{
			"type":     "array",
			"items":    StringSchema(),
			"minItems": 2,
			"maxItems": 6,
		},
		"answer_index": map[string]any{"type": "integer", "minimum": 0},
		"rationale":    map[string]any{"type": "string"},
	}, "prompt", "choices", "answer_index"))
}

func ExplanationsSchema() map[string]any {
	return ArrayOf(ObjectSchema(map[string]any{
		"concept": StringSchema(),
		"body":    StringSchema(),
	}, "concept", "body"))
}

func VocabularySchema() map[string]any {
	return ArrayOf(ObjectSchema(map[string]any{
		"term":       StringSchema(),
		"definition": StringSchema(),
	}, "term", "definition"))
}
