package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdownSections(t *testing.T) {
	dir := t.TempDir()
	content := `# Invoice Filing

Stamp the invoice, then file it in the blue cabinet.

# Refund Handling

Verify the receipt before issuing any refund.
`
	path := filepath.Join(dir, "finance.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	parser := NewSOPParser(dir)
	entries, err := parser.ParseFile(path)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Invoice Filing", entries[0].Title)
	assert.Contains(t, entries[0].Content, "blue cabinet")
	assert.Equal(t, "Refund Handling", entries[1].Title)
	assert.Equal(t, "finance.md", entries[1].SourceFile)
}

func TestParseTextNumberedHeadings(t *testing.T) {
	dir := t.TempDir()
	content := `1. Escalation Path

Contact the shift supervisor first.

2. Resolution

Document the outcome in the tracker.
`
	path := filepath.Join(dir, "support.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	parser := NewSOPParser(dir)
	entries, err := parser.ParseFile(path)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1. Escalation Path", entries[0].Title)
	assert.Equal(t, "2. Resolution", entries[1].Title)
}

func TestParseTextWithoutHeadingsUsesFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Just one block of procedure text."), 0o644))

	parser := NewSOPParser(dir)
	entries, err := parser.ParseFile(path)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes", entries[0].Title)
}

func TestParseCSVTaskRows(t *testing.T) {
	dir := t.TempDir()
	content := `Task,Description,Section
File an invoice,Stamp then file in the blue cabinet.,Invoices
Process a refund,Verify the receipt first.,Refunds
`
	path := filepath.Join(dir, "finance.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	parser := NewSOPParser(dir)
	entries, err := parser.ParseFile(path)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "File an invoice", entries[0].Title)
	assert.Equal(t, "Invoices", entries[0].Section)
	assert.Equal(t, "Refunds", entries[1].Section)
}

func TestCategoryFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "finance")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	path := filepath.Join(sub, "invoices.md")
	require.NoError(t, os.WriteFile(path, []byte("# Filing\n\nStamp then file."), 0o644))

	parser := NewSOPParser(dir)
	entries, err := parser.ParseDirectory()

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "finance", entries[0].Category)
}

func TestParseDirectorySkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.md"), []byte("# Filing\n\nStamp then file."), 0o644))

	parser := NewSOPParser(dir)
	entries, err := parser.ParseDirectory()

	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
