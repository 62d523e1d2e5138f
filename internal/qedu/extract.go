package qedu

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"observatorio-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type LevelValue struct {
	Level string
	Value string
}

type ModalityCount struct {
	Modality string
	Count    int
}

type levelPatterns struct {
	level      string
	afterName  *regexp.Regexp
	beforeName *regexp.Regexp
}

var levelRegexes = compileLevels(ProficiencyLevels)

func compileLevels(levels []string) []levelPatterns {
	out := make([]levelPatterns, len(levels))
	for i, level := range levels {
		quoted := regexp.QuoteMeta(level)
		out[i] = levelPatterns{
			level:      level,
			afterName:  regexp.MustCompile(fmt.Sprintf(`(?i)%s.*?(\d+)\s*%%`, quoted)),
			beforeName: regexp.MustCompile(fmt.Sprintf(`(?i)(\d+)\s*%%.*?%s`, quoted)),
		}
	}
	return out
}

// find tries "<level> ... 12%" first, then the legend form "12% ... <level>".
func (p levelPatterns) find(text string) (string, bool) {
	if m := p.afterName.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := p.beforeName.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// PageText returns the visible text of an html document joined with `sep`.
func PageText(html, sep string) (string, error) {
	doc, err := htmlutil.ParseDocument(html)
	if err != nil {
		return "", err
	}
	return documentText(doc, sep), nil
}

func documentText(doc *goquery.Document, sep string) string {
	return htmlutil.SelectionText(doc.Selection, sep)
}

// ExtractLevels finds the percentage of each proficiency level in the page text, levels
// without a match are omitted.
func ExtractLevels(text string) []LevelValue {
	var out []LevelValue
	for _, p := range levelRegexes {
		value, ok := p.find(text)
		if ok {
			out = append(out, LevelValue{Level: p.level, Value: value})
		}
	}
	return out
}

var (
	adequateSentenceRegex = regexp.MustCompile(`(?i)(\d+)\s*%\s*dos alunos têm aprendizado adequado`)
	adequateLabelRegex    = regexp.MustCompile(`(?i)aprendizado adequado.*?(\d+)\s*%`)
)

const kpiSelector = ".amount, .value, .kpi-value"

// ExtractAdequate finds the "aprendizado adequado" highlight. When the sentence is not in
// the text the first short KPI element holding a percentage is used.
func ExtractAdequate(doc *goquery.Document) (string, bool) {
	text := documentText(doc, " ")
	if m := adequateSentenceRegex.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := adequateLabelRegex.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	var value string
	var found bool
	doc.Find(kpiSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		kpi := htmlutil.SelectionText(sel, "")
		if strings.Contains(kpi, "%") && utf8.RuneCountInString(kpi) < 8 {
			value = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(kpi, "%", ""), ",", "."))
			found = true
			return false
		}
		return true
	})
	return value, found
}

const levelBlockSelector = "div[class*='bar'], div[class*='progress'], li, tr"

// ExtractLevelBlocks scans every bar, list item and table row for a level name and the
// percentage next to it. Nested blocks report the same value more than once.
func ExtractLevelBlocks(doc *goquery.Document) []LevelValue {
	var out []LevelValue
	doc.Find(levelBlockSelector).Each(func(_ int, sel *goquery.Selection) {
		text := htmlutil.SelectionText(sel, " ")
		for _, p := range levelRegexes {
			if !strings.Contains(text, p.level) {
				continue
			}
			value, ok := p.find(text)
			if ok {
				out = append(out, LevelValue{Level: p.level, Value: value})
			}
		}
	})
	return out
}

var countRegex = regexp.MustCompile(`\b\d{1,3}(?:\.\d{3})*\b`)

const maxPlausibleCount = 500000

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// standalone rejects numbers glued to a non-ascii letter, like the "1" of "1º", which
// the ascii \b of regexp does not catch.
func standalone(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

// LargestCount returns the largest dot-grouped number in text ("5.200" is 5200), ignoring
// `year` and anything from 500000 up.
func LargestCount(text string, year int) (int, bool) {
	best := -1
	for offset := 0; offset < len(text); {
		loc := countRegex.FindStringIndex(text[offset:])
		if loc == nil {
			break
		}
		start, end := offset+loc[0], offset+loc[1]
		if !standalone(text, start, end) {
			// a later group of the rejected match can still stand alone, "é12.345" holds 345
			_, size := utf8.DecodeRuneInString(text[start:])
			offset = start + size
			continue
		}
		offset = end

		n, err := strconv.Atoi(strings.ReplaceAll(text[start:end], ".", ""))
		if err != nil || n == year || n >= maxPlausibleCount {
			continue
		}
		if n > best {
			best = n
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// MatchModalities pairs every line with every term it contains, when the line also holds
// a valid count. A line like "Anos Iniciais 5º ano 3.100" matches two terms.
func MatchModalities(lines, terms []string, year int) []ModalityCount {
	var out []ModalityCount
	for _, line := range lines {
		for _, term := range terms {
			if !strings.Contains(line, term) {
				continue
			}
			count, ok := LargestCount(line, year)
			if ok {
				out = append(out, ModalityCount{Modality: term, Count: count})
			}
		}
	}
	return out
}

// ParseDecimal parses a number that may use a decimal comma.
func ParseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
