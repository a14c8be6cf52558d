package prompts

import (
	"strings"
	"testing"
)

func TestBuildRendersInput(t *testing.T) {
	p, err := Build(PromptFlashcards, Input{TopicTitle: "Osmosis", Count: 4, Excerpt: "water moves"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p.User, "Topic: Osmosis") || !strings.Contains(p.User, "Write 4 flashcards") {
		t.Fatalf("user prompt not rendered: %q", p.User)
	}
	if strings.Contains(p.User, "Avoid repeating") {
		t.Fatalf("empty Existing should drop the block: %q", p.User)
	}
	if len(p.Fingerprint()) != 64 {
		t.Fatalf("fingerprint: want 64 hex chars got=%d", len(p.Fingerprint()))
	}
}

func TestBuildRunsValidators(t *testing.T) {
	if _, err := Build(PromptTopicDiscovery, Input{MaxTopics: 3}); err == nil {
		t.Fatalf("expected missing excerpt error")
	}
	if _, err := Build(PromptQuestions, Input{TopicTitle: "x"}); err == nil {
		t.Fatalf("expected count error")
	}
	if _, err := Build("nope", Input{}); err == nil {
		t.Fatalf("expected unknown prompt error")
	}
}

func TestDecodeValidatesAgainstSchema(t *testing.T) {
	p, err := Build(PromptQuestions, Input{TopicTitle: "Cells", Count: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var out []QuestionDraft
	good := "Here you go:\n```json\n[{\"prompt\":\"Q?\",\"choices\":[\"a\",\"b\"],\"answer_index\":1}]\n```"
	if err := p.Decode(good, &out); err != nil {
		t.Fatalf("Decode good: %v", err)
	}
	if len(out) != 1 || out[0].AnswerIndex != 1 {
		t.Fatalf("decoded: got=%+v", out)
	}

	bad := `[{"prompt":"Q?","choices":["only one"],"answer_index":0}]`
	if err := p.Decode(bad, &out); err == nil {
		t.Fatalf("expected schema violation for a single choice")
	}
}
