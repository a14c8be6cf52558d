package structured

import (
	"errors"
	"testing"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"raw array", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced", "```json\n[1,2]\n```", `[1,2]`},
		{"chatty prefix", "Here you go:\n[{\"front\":\"x\"}]\nHope it helps", `[{"front":"x"}]`},
		{"object only", `Result: {"a":1} done`, `{"a":1}`},
		{"brace before array", "Here are the cards {as requested}: [{\"front\":\"a\",\"back\":\"b\"}]", `[{"front":"a","back":"b"}]`},
		{"array inside prose object", `Sure {note} [1,2] {end}`, `[1,2]`},
	}
	for _, tc := range cases {
		got, err := Extract(tc.in)
		if err != nil {
			t.Fatalf("%s: Extract: %v", tc.name, err)
		}
		if string(got) != tc.want {
			t.Fatalf("%s: want=%s got=%s", tc.name, tc.want, got)
		}
	}
}

func TestExtractNoJSON(t *testing.T) {
	if _, err := Extract("I cannot help with that."); !errors.Is(err, ErrNoJSON) {
		t.Fatalf("want ErrNoJSON got=%v", err)
	}
}

func TestSchemaDecode(t *testing.T) {
	s := MustCompile("cards", []byte(`{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["front", "back"],
			"properties": {"front": {"type": "string"}, "back": {"type": "string"}}
		}
	}`))

	var cards []struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	}
	if err := s.Decode("```json\n[{\"front\":\"Q\",\"back\":\"A\"}]\n```", &cards); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(cards) != 1 || cards[0].Back != "A" {
		t.Fatalf("cards: got=%+v", cards)
	}

	if err := s.Decode(`[{"front":"Q"}]`, &cards); err == nil {
		t.Fatalf("Decode missing field: want error")
	}
	if err := s.Decode(`[]`, &cards); err == nil {
		t.Fatalf("Decode empty: want error")
	}
}
