package titlecard

import "strings"

// Measurer reports the rendered size of a string.
type Measurer interface {
	Measure(s string) (width, height float64)
}

// Wrap greedily packs words into lines no wider than maxWidth. A word that
// is wider than maxWidth by itself gets its own line and is never split.
func Wrap(m Measurer, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if w, _ := m.Measure(candidate); w <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
