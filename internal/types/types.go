package types

import (
	"context"

	"github.com/xhad/kbot/internal/models"
)

// Core interfaces
type DocumentLoader interface {
	Load(ctx context.Context) ([]models.Document, error)
	Count(ctx context.Context) (int, error)
	Dir() string
}

type ContextFinder interface {
	FindRelevantContext(ctx context.Context, question string) string
}

type Completer interface {
	Complete(ctx context.Context, systemPrompt, question string) (string, error)
}

type StreamingCompleter interface {
	Completer
	CompleteStream(ctx context.Context, systemPrompt, question string, onChunk func(chunk string) error) (string, error)
}

type PromptBuilder interface {
	Build(role, context, question string) string
}
