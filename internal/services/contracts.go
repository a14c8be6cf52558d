package services

import (
	"context"
	"io"

	"github.com/yungbote/studydeck-backend/internal/platform/extract"
	"github.com/yungbote/studydeck-backend/internal/platform/openai"
)

// ObjectStore holds uploaded source files.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type TextExtractor = extract.Extractor
type ExtractFile = extract.File
type Extraction = extract.Extraction

type AIClient = openai.Client
