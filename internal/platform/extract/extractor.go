// Package extract turns uploaded files into plain text and a page count.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// CharsPerPage is the page size assumed for formats without real pages.
const CharsPerPage = 3000

type File struct {
	Name     string
	MimeType string
	Data     []byte
}

type Extraction struct {
	Text      string
	PageCount int
}

type Extractor interface {
	Extract(ctx context.Context, f File) (Extraction, error)
}

// ErrUnsupported is returned for formats this extractor cannot read.
type ErrUnsupported struct {
	MimeType string
	Name     string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported file type %q (%s)", e.MimeType, e.Name)
}

type extractor struct{}

func New() Extractor { return &extractor{} }

func (x *extractor) Extract(ctx context.Context, f File) (Extraction, error) {
	if len(f.Data) == 0 {
		return Extraction{}, fmt.Errorf("empty file")
	}
	switch kindOf(f) {
	case "pdf":
		return extractPDF(ctx, f.Data)
	case "text":
		if !utf8.Valid(f.Data) {
			return Extraction{}, fmt.Errorf("text file is not valid UTF-8")
		}
		text := strings.TrimSpace(string(f.Data))
		return Extraction{Text: text, PageCount: PagesForText(text)}, nil
	default:
		return Extraction{}, &ErrUnsupported{MimeType: f.MimeType, Name: f.Name}
	}
}

func kindOf(f File) string {
	mt := strings.ToLower(strings.TrimSpace(f.MimeType))
	ext := strings.ToLower(filepath.Ext(f.Name))
	switch {
	case mt == "application/pdf" || ext == ".pdf" || bytes.HasPrefix(f.Data, []byte("%PDF-")):
		return "pdf"
	case strings.HasPrefix(mt, "text/"), ext == ".txt", ext == ".md", ext == ".markdown":
		return "text"
	default:
		return ""
	}
}

// PagesForText approximates a page count from character length.
func PagesForText(text string) int {
	n := utf8.RuneCountInString(text)
	pages := (n + CharsPerPage - 1) / CharsPerPage
	if pages < 1 {
		return 1
	}
	return pages
}

func extractPDF(ctx context.Context, data []byte) (Extraction, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return Extraction{}, fmt.Errorf("read pdf page count: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	dir, err := os.MkdirTemp("", "studydeck-pdf-*")
	if err != nil {
		return Extraction{}, err
	}
	defer os.RemoveAll(dir)

	if err := api.ExtractContent(bytes.NewReader(data), dir, "doc", nil, conf); err != nil {
		return Extraction{}, fmt.Errorf("extract pdf content: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Extraction{}, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return pageOrder(names[i]) < pageOrder(names[j]) })

	var b strings.Builder
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return Extraction{}, err
		}
		if text := TextFromContentStream(raw); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}
	return Extraction{Text: strings.TrimSpace(b.String()), PageCount: pages}, nil
}

// pageOrder pulls the trailing page number out of "doc_Content_page_12.txt".
func pageOrder(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndexByte(base, '_')
	n := 0
	for _, r := range base[i+1:] {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
