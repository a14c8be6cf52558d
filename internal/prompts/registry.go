package prompts

import (
	"fmt"
	"sync"

	"github.com/yungbote/studydeck-backend/internal/platform/structured"
)

type Template struct {
	Name     PromptName
	Version  int
	Schema   *structured.Schema
	System   func(Input) string
	User     func(Input) string
	Validate Validator
}

var (
	registryMu sync.RWMutex
	registry   = map[PromptName]Template{}
)

func Register(t Template) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t.Name] = t
}

// Build renders the named prompt for in.
func Build(name PromptName, in Input) (Prompt, error) {
	registryMu.RLock()
	t, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.System == nil || t.User == nil {
		return Prompt{}, fmt.Errorf("prompt %s missing system/user renderers", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	return Prompt{
		Name:    string(t.Name),
		Version: t.Version,
		System:  t.System(in),
		User:    t.User(in),
		Schema:  t.Schema,
	}, nil
}
