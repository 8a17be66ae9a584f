// Package readability derives length and reading-ease statistics from
// article text.
package readability

import (
	"errors"
	"strings"
	"unicode"
)

// ErrNoText is returned when there is no prose to analyze.
var ErrNoText = errors.New("no text to analyze")

// Score is one reading-ease result with the normalization bounds downstream
// consumers need.
type Score struct {
	Name   string  `json:"name"`
	Result float64 `json:"result"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Stats holds text statistics for one article extract.
type Stats struct {
	Words     int     `json:"words"`
	Sentences int     `json:"sentences"`
	Syllables int     `json:"syllables"`
	Scores    []Score `json:"scores"`
}

// Compute derives statistics from text. The language selects an additional
// language-calibrated formula where one exists (German, Italian); the classic
// Flesch Reading Ease is always included.
func Compute(text, lang string) (*Stats, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, ErrNoText
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}
	sentences := countSentences(text)

	w := float64(len(words))
	s := float64(sentences)
	sy := float64(syllables)

	stats := &Stats{
		Words:     len(words),
		Sentences: sentences,
		Syllables: syllables,
	}

	// Flesch Reading Ease (English calibration, commonly applied as baseline)
	stats.Scores = append(stats.Scores, Score{
		Name:   "fres",
		Result: 206.835 - 1.015*(w/s) - 84.6*(sy/w),
		Min:    0,
		Max:    100,
	})

	switch lang {
	case "de":
		// Amstad's adaptation for German
		stats.Scores = append(stats.Scores, Score{
			Name:   "fres_amstad",
			Result: 180 - (w / s) - 58.5*(sy/w),
			Min:    0,
			Max:    100,
		})
	case "it":
		// Franchina-Vacca adaptation for Italian
		stats.Scores = append(stats.Scores, Score{
			Name:   "fres_vacca",
			Result: 206.835 - 1.3*(w/s) - 60*(sy/w),
			Min:    0,
			Max:    100,
		})
	}

	return stats, nil
}

// countSentences counts terminator runs (. ! ?), so "..." ends one sentence.
// Text with words but no terminator counts as a single sentence.
func countSentences(text string) int {
	count := 0
	inRun := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inRun {
				count++
				inRun = true
			}
		} else {
			inRun = false
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}

// countSyllables approximates syllables as vowel groups, which is close
// enough for reading-ease formulas across the supported languages.
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range strings.ToLower(word) {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if count == 0 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u', 'y',
		'à', 'â', 'ä', 'é', 'è', 'ê', 'ë', 'î', 'ï', 'ô', 'ö', 'ù', 'û', 'ü':
		return true
	}
	return false
}
