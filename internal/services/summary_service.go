package services

import (
	"strings"
	"unicode/utf8"

	"salesdash/internal/core"
)

const DefaultSummaryLength = 100

// SummaryService produces the short preview shown on the dashboard's meeting card.
type SummaryService struct {
	maxLen int
}

func NewSummaryService(maxLen int) *SummaryService {
	if maxLen <= 0 {
		maxLen = DefaultSummaryLength
	}
	return &SummaryService{maxLen: maxLen}
}

// Summarize collapses whitespace and truncates to maxLen runes, marking the cut with "...".
func (s *SummaryService) Summarize(text string) (string, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", core.ErrEmptyText
	}
	if utf8.RuneCountInString(text) <= s.maxLen {
		return text, nil
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:s.maxLen]), " ") + "...", nil
}
