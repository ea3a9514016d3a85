// Package chatbot answers one question: it gathers knowledge context, builds the
// system prompt and asks the completion model.
package chatbot

import (
	"context"
	"errors"

	"github.com/xhad/kbot/internal/types"
	"github.com/xhad/kbot/pkg/prompt"
)

// Messages returned to callers. Causes of internal failures are never exposed.
const (
	MsgQuestionRequired = "Question is required."
	MsgInternalError    = "عذراً، حدث خطأ داخلي أثناء معالجة الطلب في خادم البوت."
)

var ErrQuestionRequired = errors.New("question is required")

type AskRequest struct {
	Question string `json:"question"`
	UserRole string `json:"user_role,omitempty"`
}

type Service struct {
	finder    types.ContextFinder
	prompts   types.PromptBuilder
	completer types.Completer
}

func NewService(finder types.ContextFinder, prompts types.PromptBuilder, completer types.Completer) *Service {
	if prompts == nil {
		prompts = prompt.NewBuilder(prompt.DefaultInstitution)
	}
	return &Service{
		finder:    finder,
		prompts:   prompts,
		completer: completer,
	}
}

// Prepare validates the request and returns the system prompt for it.
func (s *Service) Prepare(ctx context.Context, req AskRequest) (string, error) {
	if req.Question == "" {
		return "", ErrQuestionRequired
	}

	role := req.UserRole
	if role == "" {
		role = prompt.RoleVisitor
	}

	knowledge := s.finder.FindRelevantContext(ctx, req.Question)
	return s.prompts.Build(role, knowledge, req.Question), nil
}

// Ask returns the model's reply, ErrQuestionRequired, or a completion error.
func (s *Service) Ask(ctx context.Context, req AskRequest) (string, error) {
	systemPrompt, err := s.Prepare(ctx, req)
	if err != nil {
		return "", err
	}
	return s.completer.Complete(ctx, systemPrompt, req.Question)
}

// AskStream is Ask with reply chunks delivered to onChunk as they arrive. A
// completer without streaming support delivers the whole reply as one chunk.
func (s *Service) AskStream(ctx context.Context, req AskRequest, onChunk func(chunk string) error) (string, error) {
	systemPrompt, err := s.Prepare(ctx, req)
	if err != nil {
		return "", err
	}

	if sc, ok := s.completer.(types.StreamingCompleter); ok {
		return sc.CompleteStream(ctx, systemPrompt, req.Question, onChunk)
	}

	reply, err := s.completer.Complete(ctx, systemPrompt, req.Question)
	if err != nil {
		return "", err
	}
	if err := onChunk(reply); err != nil {
		return "", err
	}
	return reply, nil
}
