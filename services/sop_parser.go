package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

// SOPParser extracts source entries from the SOP document directory.
// Spreadsheets yield one entry per task row; documents yield one entry
// per heading-delimited section.
type SOPParser struct {
	rootDir string
}

func NewSOPParser(rootDir string) *SOPParser {
	return &SOPParser{rootDir: rootDir}
}

// ParseDirectory walks the document tree and parses every supported
// file. Unparseable files are logged and skipped; a reindex should not
// fail because one upload was corrupt.
func (p *SOPParser) ParseDirectory() ([]models.SourceEntry, error) {
	var entries []models.SourceEntry

	err := filepath.WalkDir(p.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		parsed, perr := p.ParseFile(path)
		if perr != nil {
			logger.Warn("Skipping unparseable document", "file", path, "error", perr)
			return nil
		}
		entries = append(entries, parsed...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk document directory: %w", err)
	}

	logger.Info("Parsed SOP documents", "dir", p.rootDir, "entries", len(entries))
	return entries, nil
}

// ParseFile dispatches on file extension.
func (p *SOPParser) ParseFile(path string) ([]models.SourceEntry, error) {
	category := p.categoryFor(path)
	sourceFile := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return parseSpreadsheet(path, sourceFile, category)
	case ".csv":
		return parseCSVTasks(path, sourceFile, category)
	case ".pdf":
		return parsePDF(path, sourceFile, category)
	case ".md", ".txt":
		return parseTextDocument(path, sourceFile, category)
	default:
		return nil, fmt.Errorf("unsupported document format: %s", path)
	}
}

// categoryFor derives the category from the first subdirectory under the
// document root, falling back to "general" for files at the top level.
func (p *SOPParser) categoryFor(path string) string {
	rel, err := filepath.Rel(p.rootDir, path)
	if err != nil {
		return "general"
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return "general"
}

func parseSpreadsheet(path, sourceFile, category string) ([]models.SourceEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var entries []models.SourceEntry
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		entries = append(entries, parseTaskRows(rows, sourceFile, category, sheet)...)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no task rows found in %s", sourceFile)
	}
	return entries, nil
}

func parseCSVTasks(path, sourceFile, category string) ([]models.SourceEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	entries := parseTaskRows(rows, sourceFile, category, "")
	if len(entries) == 0 {
		return nil, fmt.Errorf("no task rows found in %s", sourceFile)
	}
	return entries, nil
}

// parseTaskRows turns a header-plus-rows table into entries. The header
// is detected by fuzzy column-name matching like the acronym table
// loader; spreadsheet exports rarely agree on exact column names.
func parseTaskRows(rows [][]string, sourceFile, category, section string) []models.SourceEntry {
	titleCol, bodyCol, sectionCol, headerRow := detectTaskHeader(rows)
	if titleCol < 0 || bodyCol < 0 {
		return nil
	}

	var entries []models.SourceEntry
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if titleCol >= len(row) || bodyCol >= len(row) {
			continue
		}

		title := strings.TrimSpace(row[titleCol])
		body := strings.TrimSpace(row[bodyCol])
		if title == "" || body == "" {
			continue
		}

		entry := models.SourceEntry{
			Title:      title,
			Content:    body,
			Category:   category,
			Section:    section,
			SourceFile: sourceFile,
		}
		if sectionCol >= 0 && sectionCol < len(row) && strings.TrimSpace(row[sectionCol]) != "" {
			entry.Section = strings.TrimSpace(row[sectionCol])
		}
		entries = append(entries, entry)
	}

	return entries
}

func detectTaskHeader(rows [][]string) (titleCol, bodyCol, sectionCol, headerRow int) {
	titleCol, bodyCol, sectionCol = -1, -1, -1

	maxScan := 5
	if len(rows) < maxScan {
		maxScan = len(rows)
	}

	for r := 0; r < maxScan; r++ {
		t, b, s := -1, -1, -1
		for col, cell := range rows[r] {
			name := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case strings.Contains(name, "task") || strings.Contains(name, "title") || strings.Contains(name, "step") || strings.Contains(name, "name"):
				if t < 0 {
					t = col
				}
			case strings.Contains(name, "descri") || strings.Contains(name, "detail") || strings.Contains(name, "procedure") || strings.Contains(name, "instruction"):
				if b < 0 {
					b = col
				}
			case strings.Contains(name, "section") || strings.Contains(name, "categor") || strings.Contains(name, "area"):
				if s < 0 {
					s = col
				}
			}
		}
		if t >= 0 && b >= 0 {
			return t, b, s, r
		}
	}

	return -1, -1, -1, 0
}

func parsePDF(path, sourceFile, category string) ([]models.SourceEntry, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(textReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf text: %w", err)
	}

	entries := sectionsFromText(string(raw), sourceFile, category)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no sections found in %s", sourceFile)
	}
	return entries, nil
}

func parseTextDocument(path, sourceFile, category string) ([]models.SourceEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	entries := sectionsFromText(string(raw), sourceFile, category)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no sections found in %s", sourceFile)
	}
	return entries, nil
}

// sectionsFromText splits free text at heading lines. Text before the
// first heading becomes an introduction entry titled after the file.
func sectionsFromText(text, sourceFile, category string) []models.SourceEntry {
	lines := strings.Split(text, "\n")

	var entries []models.SourceEntry
	title := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile))
	var body []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content != "" {
			entries = append(entries, models.SourceEntry{
				Title:      title,
				Content:    content,
				Category:   category,
				Section:    title,
				SourceFile: sourceFile,
			})
		}
		body = body[:0]
	}

	for _, line := range lines {
		if heading, ok := headingText(line); ok {
			flush()
			title = heading
			continue
		}
		body = append(body, line)
	}
	flush()

	return entries
}

// headingText recognizes markdown headings, numbered headings like
// "3. Escalation", and short all-caps lines.
func headingText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 80 {
		return "", false
	}

	if strings.HasPrefix(trimmed, "#") {
		return strings.TrimSpace(strings.TrimLeft(trimmed, "# ")), true
	}

	if isNumberedHeading(trimmed) {
		return trimmed, true
	}

	if isAllCapsHeading(trimmed) {
		return trimmed, true
	}

	return "", false
}

func isNumberedHeading(line string) bool {
	dot := strings.IndexByte(line, '.')
	if dot <= 0 || dot == len(line)-1 {
		return false
	}
	for _, r := range line[:dot] {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	rest := strings.TrimSpace(line[dot+1:])
	// A sentence ends with punctuation; a heading does not.
	return rest != "" && !strings.HasSuffix(rest, ".") && !strings.HasSuffix(rest, ",")
}

func isAllCapsHeading(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= 3 && !strings.HasSuffix(line, ".")
}
