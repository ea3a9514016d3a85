package retriever

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xhad/kbot/internal/models"
	"github.com/xhad/kbot/internal/types"
)

const fileHeader = "--- content from file: %s ---\n%s"

type Retriever struct {
	loader types.DocumentLoader
}

func New(loader types.DocumentLoader) *Retriever {
	return &Retriever{loader: loader}
}

// FindRelevantContext loads the knowledge directory and returns the bundle of
// documents matching the question. Load failures are logged and produce "".
func (r *Retriever) FindRelevantContext(ctx context.Context, question string) string {
	docs, err := r.loader.Load(ctx)
	if err != nil {
		log.Printf("Error reading knowledge files: %v", err)
		return ""
	}
	return Match(question, docs)
}

// Match joins every document that contains at least one whitespace-separated
// token of the question. Matching is a case-insensitive substring test, so
// "art" matches "start".
func Match(question string, docs []models.Document) string {
	tokens := strings.Fields(strings.ToLower(question))
	if len(tokens) == 0 {
		return ""
	}

	var matched []string
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		if containsAny(strings.ToLower(doc.Content), tokens) {
			matched = append(matched, fmt.Sprintf(fileHeader, doc.Filename, doc.Content))
		}
	}

	return strings.Join(matched, "\n\n")
}

func containsAny(text string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}
