package prompts

import (
	"fmt"
	"strings"
)

type Validator func(Input) error

func RequireExcerpt(in Input) error {
	if strings.TrimSpace(in.Excerpt) == "" {
		return fmt.Errorf("missing excerpt")
	}
	return nil
}

func RequireTopic(in Input) error {
	if strings.TrimSpace(in.TopicTitle) == "" {
		return fmt.Errorf("missing topic title")
	}
	return nil
}

func RequireCount(in Input) error {
	if in.Count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	return nil
}
