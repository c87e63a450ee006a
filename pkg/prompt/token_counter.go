package prompt

// EstimateTokens estimates token count using the ~4 chars/token heuristic.
// Good enough for showing prompt size before sending. Not billing-accurate.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	// Round up: (len + 3) / 4
	return (len(text) + 3) / 4
}

// Stats describes a built prompt.
type Stats struct {
	Chars  int `json:"chars"`
	Tokens int `json:"tokens"`
}

// Measure returns size stats for a prompt. Chars counts runes.
func Measure(text string) Stats {
	return Stats{
		Chars:  len([]rune(text)),
		Tokens: EstimateTokens(text),
	}
}
