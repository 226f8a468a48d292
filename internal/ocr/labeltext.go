package ocr

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Words that appear on most prescription labels but never name the drug.
var labelStopWords = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "WITH": true, "TAKE": true,
	"TABLET": true, "TABLETS": true, "CAPSULE": true, "CAPSULES": true,
	"DAILY": true, "TWICE": true, "ONCE": true, "ORAL": true, "ORALLY": true,
	"MOUTH": true, "FOOD": true, "WATER": true, "REFILL": true, "REFILLS": true,
	"PHARMACY": true, "DOCTOR": true, "PRESCRIPTION": true, "WARNING": true,
	"KEEP": true, "OUT": true, "REACH": true, "CHILDREN": true,
	"MG": true, "MCG": true, "ML": true, "QTY": true, "EXP": true, "LOT": true,
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9 ]`)

// ParseLabel extracts candidate medication names from raw label text.
// OCR output is noisy, so the text is normalized before tokenizing and
// the longest mostly-alphabetic words are preferred.
func ParseLabel(text string) ([]string, error) {
	cleaned := cleanText(text)
	if cleaned == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(cleaned,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize label text: %w", err)
	}

	seen := make(map[string]bool)
	var candidates []string
	for _, tok := range doc.Tokens() {
		word := strings.TrimSpace(tok.Text)
		if !isCandidate(word) || seen[word] {
			continue
		}
		seen[word] = true
		candidates = append(candidates, word)
	}

	// Longest words first. Drug names tend to be the longest words on a
	// label.
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})

	return candidates, nil
}

// cleanText normalizes OCR artifacts: pipes misread as the letter I,
// mixed case, and stray punctuation.
func cleanText(text string) string {
	upper := strings.ToUpper(text)
	upper = strings.ReplaceAll(upper, "|", "I")
	upper = nonAlphanumeric.ReplaceAllString(upper, " ")
	return strings.Join(strings.Fields(upper), " ")
}

func isCandidate(word string) bool {
	if len(word) < 4 {
		return false
	}
	if labelStopWords[word] {
		return false
	}

	letters := 0
	for _, r := range word {
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	// Mostly-alphabetic rules out dose strengths and lot numbers.
	return float64(letters)/float64(len(word)) >= 0.75
}
