package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/yungbote/studydeck-backend/internal/platform/structured"
)

type Prompt struct {
	Name    string
	Version int
	System  string
	User    string
	Schema  *structured.Schema
}

func (p Prompt) Fingerprint() string {
	h := sha256.Sum256([]byte(
		strings.TrimSpace(p.Name) + "|" +
			strconv.Itoa(p.Version) + "|" +
			strings.TrimSpace(p.System) + "|" +
			strings.TrimSpace(p.User),
	))
	return hex.EncodeToString(h[:])
}

// Decode parses model output for this prompt into out.
func (p Prompt) Decode(content string, out any) error {
	return p.Schema.Decode(content, out)
}
