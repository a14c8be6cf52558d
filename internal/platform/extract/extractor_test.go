package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFromContentStream(t *testing.T) {
	stream := []byte(`BT /F1 12 Tf 72 712 Td (Photosynthesis) Tj 0 -14 Td [(Light ) -250 (reactions)] TJ
(occur in \(thylakoids\)) ' ET`)
	got := TextFromContentStream(stream)
	assert.Equal(t, "Photosynthesis\nLight reactions\noccur in (thylakoids)", got)
}

func TestReadLiteralOctalEscape(t *testing.T) {
	lit, next := readLiteral(`(caf\351) Tj`, 0)
	assert.Equal(t, "caf\xe9", lit)
	assert.Equal(t, 10, next)
}

func TestExtractPlainText(t *testing.T) {
	x := New()
	body := strings.Repeat("a", CharsPerPage*2+1)
	out, err := x.Extract(context.Background(), File{Name: "notes.md", MimeType: "text/markdown", Data: []byte(body)})
	require.NoError(t, err)
	assert.Equal(t, 3, out.PageCount)
	assert.Equal(t, body, out.Text)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := New().Extract(context.Background(), File{Name: "song.mp3", MimeType: "audio/mpeg", Data: []byte{1, 2}})
	var unsupported *ErrUnsupported
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "audio/mpeg", unsupported.MimeType)
}

func TestPagesForText(t *testing.T) {
	assert.Equal(t, 1, PagesForText(""))
	assert.Equal(t, 1, PagesForText(strings.Repeat("x", CharsPerPage)))
	assert.Equal(t, 2, PagesForText(strings.Repeat("x", CharsPerPage+1)))
}

func TestPageOrder(t *testing.T) {
	assert.Equal(t, 12, pageOrder("doc_Content_page_12.txt"))
	assert.Equal(t, 0, pageOrder("README"))
}
