package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

// Common English words that look like abbreviations. Never corrected or
// expanded, even when the reference table happens to define them.
var acronymBlacklist = map[string]bool{
	"IT": true, "OK": true, "HR": true, "PM": true, "AM": true,
	"UK": true, "EU": true, "US": true, "USA": true, "NO": true,
	"SO": true, "TO": true, "DO": true, "IF": true, "IS": true,
	"AS": true, "AT": true, "BE": true, "BY": true, "GO": true,
	"IN": true, "ON": true, "OR": true, "UP": true, "WE": true,
	"FAQ": true, "PDF": true,
}

var (
	// "ABBR (some explanation)" — candidate for the correction pass.
	explainedAcronymPattern = regexp.MustCompile(`\b([A-Z]{2,6})\s*\(([^)]+)\)`)
	// Bare uppercase token — candidate for the expansion pass.
	bareAcronymPattern = regexp.MustCompile(`\b[A-Z]{2,6}\b`)
)

// AcronymService owns the abbreviation reference table: a lookup map
// built once from a tabular file and cached for the process lifetime,
// invalidated only by an explicit Reload. Readers tolerate a
// stale-then-fresh swap, so a single RWMutex suffices.
type AcronymService struct {
	mu    sync.RWMutex
	path  string
	table map[string]models.Acronym
	list  []models.Acronym
}

func NewAcronymService(path string) *AcronymService {
	return &AcronymService{
		path:  path,
		table: make(map[string]models.Acronym),
	}
}

// Reload re-reads the reference table and swaps the cached map.
func (s *AcronymService) Reload() error {
	acronyms, err := loadAcronymTable(s.path)
	if err != nil {
		return err
	}

	table := make(map[string]models.Acronym, len(acronyms))
	for _, a := range acronyms {
		table[strings.ToUpper(a.Abbreviation)] = a
	}

	s.mu.Lock()
	s.table = table
	s.list = acronyms
	s.mu.Unlock()

	logger.Info("Acronym table loaded", "path", s.path, "count", len(acronyms))
	return nil
}

// ensureLoaded lazily populates the cache on first use.
func (s *AcronymService) ensureLoaded() {
	s.mu.RLock()
	loaded := len(s.table) > 0
	s.mu.RUnlock()
	if loaded {
		return
	}

	if err := s.Reload(); err != nil {
		logger.Warn("Failed to load acronym table", "path", s.path, "error", err)
	}
}

// Lookup returns the canonical entry for an abbreviation, if known.
func (s *AcronymService) Lookup(abbreviation string) (models.Acronym, bool) {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.table[strings.ToUpper(abbreviation)]
	return a, ok
}

// All returns the cached acronym list.
func (s *AcronymService) All() []models.Acronym {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Acronym, len(s.list))
	copy(out, s.list)
	return out
}

// ValidateResponse is the correction pass: wherever the answer writes
// "ABBR (explanation)" and the explanation does not overlap the canonical
// full form, the parenthetical is rewritten. Matches are processed left
// to right into a fresh buffer; every replacement changes the string
// length, so splicing by captured index into the original would corrupt
// all later offsets.
func (s *AcronymService) ValidateResponse(text string) (string, []models.AcronymCorrection) {
	s.ensureLoaded()

	matches := explainedAcronymPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var corrections []models.AcronymCorrection
	var out strings.Builder
	last := 0

	for _, m := range matches {
		start, end := m[0], m[1]
		abbr := text[m[2]:m[3]]
		explanation := text[m[4]:m[5]]

		canonical, known := s.Lookup(abbr)
		if !known || acronymBlacklist[abbr] || explanationMatches(explanation, canonical.FullForm) {
			continue
		}

		out.WriteString(text[last:start])
		out.WriteString(fmt.Sprintf("%s (%s)", abbr, canonical.FullForm))
		last = end

		corrections = append(corrections, models.AcronymCorrection{
			Abbreviation: abbr,
			Original:     explanation,
			Corrected:    canonical.FullForm,
		})
	}

	if len(corrections) == 0 {
		return text, nil
	}

	out.WriteString(text[last:])
	return out.String(), corrections
}

// ExpandAcronyms is the expansion pass: bare known abbreviations get
// their full form appended in parentheses after the first occurrence
// only. Same left-to-right splice strategy as the correction pass.
func (s *AcronymService) ExpandAcronyms(text string) (string, []string) {
	s.ensureLoaded()

	matches := bareAcronymPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var expanded []string
	seen := make(map[string]bool)
	var out strings.Builder
	last := 0

	for _, m := range matches {
		start, end := m[0], m[1]
		abbr := text[start:end]

		if acronymBlacklist[abbr] || seen[abbr] {
			continue
		}
		if alreadyExplained(text, end) {
			// Repeating an expansion right after an existing
			// parenthetical reads badly; also keeps the correction
			// pass's output intact.
			seen[abbr] = true
			continue
		}

		canonical, known := s.Lookup(abbr)
		if !known {
			continue
		}

		seen[abbr] = true
		out.WriteString(text[last:end])
		out.WriteString(fmt.Sprintf(" (%s)", canonical.FullForm))
		last = end

		expanded = append(expanded, abbr)
	}

	if len(expanded) == 0 {
		return text, nil
	}

	out.WriteString(text[last:])
	return out.String(), expanded
}

// alreadyExplained reports whether the text following a match position
// opens a parenthetical.
func alreadyExplained(text string, pos int) bool {
	for pos < len(text) && text[pos] == ' ' {
		pos++
	}
	return pos < len(text) && text[pos] == '('
}

// explanationMatches checks textual overlap in either direction,
// case-insensitively. "Magnetic Ink Character Recognition technology"
// still counts as correct for "Magnetic Ink Character Recognition".
func explanationMatches(explanation, fullForm string) bool {
	e := strings.ToLower(strings.TrimSpace(explanation))
	f := strings.ToLower(strings.TrimSpace(fullForm))
	if e == "" || f == "" {
		return false
	}
	return strings.Contains(e, f) || strings.Contains(f, e)
}

// loadAcronymTable reads the reference table from .xlsx or .csv. The
// header row is found by fuzzy column-name matching within the first few
// rows, since exported tables often carry a title row above the headers.
func loadAcronymTable(path string) ([]models.Acronym, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadAcronymXLSX(path)
	case ".csv":
		return loadAcronymCSV(path)
	default:
		return nil, fmt.Errorf("unsupported acronym table format: %s", path)
	}
}

func loadAcronymXLSX(path string) ([]models.Acronym, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open acronym table: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("acronym table has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read acronym sheet: %w", err)
	}

	return parseAcronymRows(rows)
}

func loadAcronymCSV(path string) ([]models.Acronym, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open acronym table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read acronym csv: %w", err)
	}

	return parseAcronymRows(rows)
}

func parseAcronymRows(rows [][]string) ([]models.Acronym, error) {
	abbrCol, fullCol, catCol, headerRow := detectAcronymHeader(rows)
	if abbrCol < 0 || fullCol < 0 {
		return nil, fmt.Errorf("could not detect abbreviation/full-form columns")
	}

	var acronyms []models.Acronym
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if abbrCol >= len(row) || fullCol >= len(row) {
			continue
		}

		abbr := strings.TrimSpace(row[abbrCol])
		full := strings.TrimSpace(row[fullCol])
		if abbr == "" || full == "" {
			continue
		}

		a := models.Acronym{Abbreviation: abbr, FullForm: full}
		if catCol >= 0 && catCol < len(row) {
			a.Category = strings.TrimSpace(row[catCol])
		}
		acronyms = append(acronyms, a)
	}

	return acronyms, nil
}

// detectAcronymHeader scans the first few rows for a header whose column
// names look like an abbreviation column and a full-form column.
func detectAcronymHeader(rows [][]string) (abbrCol, fullCol, catCol, headerRow int) {
	abbrCol, fullCol, catCol = -1, -1, -1

	maxScan := 5
	if len(rows) < maxScan {
		maxScan = len(rows)
	}

	for r := 0; r < maxScan; r++ {
		a, f, c := -1, -1, -1
		for col, cell := range rows[r] {
			name := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case strings.Contains(name, "abbr") || strings.Contains(name, "acronym") || strings.Contains(name, "short"):
				a = col
			case strings.Contains(name, "full") || strings.Contains(name, "expansion") || strings.Contains(name, "meaning") || strings.Contains(name, "stands"):
				f = col
			case strings.Contains(name, "categor") || strings.Contains(name, "type") || strings.Contains(name, "domain"):
				c = col
			}
		}
		if a >= 0 && f >= 0 {
			return a, f, c, r
		}
	}

	return -1, -1, -1, 0
}
