package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/kbot/pkg/retriever"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.txt", []byte("attendance policy"))
	writeFile(t, dir, "fees.CSV", []byte("grade,fee\n10,100\n"))
	writeFile(t, dir, "notes.md", []byte("# ignored"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.txt"), 0755))

	docs, err := New(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "fees.CSV", docs[0].Filename)
	assert.Equal(t, ".csv", docs[0].Extension)
	assert.Equal(t, "grade,fee\n10,100\n", docs[0].Content)

	assert.Equal(t, "rules.txt", docs[1].Filename)
	assert.Equal(t, ".txt", docs[1].Extension)
	assert.Equal(t, "attendance policy", docs[1].Content)
}

func TestLoader_MissingDirectory(t *testing.T) {
	docs, err := New(filepath.Join(t.TempDir(), "Knowledge")).Load(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoader_UndecodableFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_bad.txt", []byte{0xff, 0xfe, 0xfd})
	writeFile(t, dir, "b_good.txt", []byte("timetable"))

	docs, err := New(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "a_bad.txt", docs[0].Filename)
	assert.Empty(t, docs[0].Content)
	assert.Equal(t, "timetable", docs[1].Content)
}

func TestLoader_BrokenPDFIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "handbook.pdf", []byte("this is not a pdf"))
	writeFile(t, dir, "rules.txt", []byte("uniform rules"))

	docs, err := New(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "handbook.pdf", docs[0].Filename)
	assert.Equal(t, ".pdf", docs[0].Extension)
	assert.Empty(t, docs[0].Content)
	assert.Equal(t, "uniform rules", docs[1].Content)
}

func TestLoader_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.txt", []byte("rules"))
	writeFile(t, dir, "data.csv", []byte("a,b"))

	l := NewWithConfig(LoaderConfig{Dir: dir, Extensions: []string{".TXT"}})
	assert.Equal(t, []string{".txt"}, l.SupportedExtensions())

	dup := NewWithConfig(LoaderConfig{Dir: dir, Extensions: []string{".pdf", ".TXT", ".txt"}})
	assert.Equal(t, []string{".pdf", ".txt"}, dup.SupportedExtensions())
	assert.Equal(t, dir, l.Dir())

	docs, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "rules.txt", docs[0].Filename)
}

func TestLoader_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.txt", []byte("rules"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(dir).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pages ...string) []byte {
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+2*i))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestLoader_PDFPagesAreJoined(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "handbook.pdf", buildPDF("Attendance policy", "Uniform rules"))

	docs, err := New(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "handbook.pdf", docs[0].Filename)
	assert.Equal(t, ".pdf", docs[0].Extension)
	assert.Equal(t, "Attendance policy\nUniform rules", docs[0].Content)

	assert.Equal(t,
		"--- content from file: handbook.pdf ---\nAttendance policy\nUniform rules",
		retriever.Match("what are the uniform rules?", docs))
}

func TestLoader_Count(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.txt", []byte("rules"))
	writeFile(t, dir, "handbook.pdf", []byte("not parsed when counting"))
	writeFile(t, dir, "notes.md", []byte("# ignored"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.txt"), 0755))

	count, err := New(dir).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = New(filepath.Join(dir, "missing")).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
