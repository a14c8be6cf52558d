// Package structured turns free-form model output into validated JSON.
package structured

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoJSON is returned when no parseable JSON value is found in the output.
var ErrNoJSON = errors.New("no JSON value in model output")

// Extract finds the first parseable JSON value in content. It tries the raw
// text, then the body of a markdown code fence, then the outermost array
// span, then the outermost object span.
func Extract(content string) (json.RawMessage, error) {
	candidates := []string{
		content,
		fencedBody(content),
		bracketSpan(content, '[', ']'),
		bracketSpan(content, '{', '}'),
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if json.Valid([]byte(c)) {
			return json.RawMessage(c), nil
		}
	}
	return nil, ErrNoJSON
}

func fencedBody(content string) string {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return ""
	}
	rest := trimmed[start+3:]
	// drop the language tag line
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return ""
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// bracketSpan returns the text from the first open to the last close.
func bracketSpan(content string, open, close byte) string {
	trimmed := strings.TrimSpace(content)
	start := strings.IndexByte(trimmed, open)
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(trimmed, close)
	if end < start {
		return ""
	}
	return trimmed[start : end+1]
}

// Schema is a compiled JSON schema for one kind of model output.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

func Compile(name string, raw []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompile panics on an invalid schema. Use for package-level schemas.
func MustCompile(name string, raw []byte) *Schema {
	s, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// Decode extracts JSON from content, validates it, and unmarshals into out.
func (s *Schema) Decode(content string, out any) error {
	raw, err := Extract(content)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s output: %w", s.name, err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		return fmt.Errorf("%s output does not match schema: %w", s.name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s output: %w", s.name, err)
	}
	return nil
}
