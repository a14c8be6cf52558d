package logger

import "testing"

func TestSanitizeKVsRedactsAndHashes(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"api_key", "sk-live",
		"user_id", "4d8c2c9e",
		"prompt_tokens", 120,
		"stage", "topics",
	})
	if len(out) != 8 {
		t.Fatalf("len: want=8 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key: want=[REDACTED] got=%v", out[1])
	}
	if s, ok := out[3].(string); !ok || len(s) != len("hash:")+12 {
		t.Fatalf("user_id: want hashed got=%v", out[3])
	}
	if out[5] != 120 {
		t.Fatalf("prompt_tokens: want=120 got=%v", out[5])
	}
	if out[7] != "topics" {
		t.Fatalf("stage: want=topics got=%v", out[7])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"stage", "extract", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", out)
	}
}
