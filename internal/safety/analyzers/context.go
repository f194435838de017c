package analyzers

import (
	"context"
	"strings"
	"unicode"

	"guardian/internal/safety/models"
)

// Context scores how well content fits the child's topic settings. It runs
// in-process: mentioning a restricted topic scores 0, anything else 1.
type Context struct{}

func (Context) Kind() models.AnalyzerKind {
	return models.KindContextAppropriateness
}

func (Context) Analyze(_ context.Context, c models.Candidate, child models.ChildContext) (models.Assessment, error) {
	words := tokenize(c.Text)
	for _, topic := range child.RestrictedTopics {
		if containsPhrase(words, tokenize(topic)) {
			return models.Assessment{Score: 0, Label: "restricted_topic"}, nil
		}
	}
	return models.Assessment{Score: 1, Label: "appropriate"}, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
