package chatbot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/kbot/pkg/chatbot"
	"github.com/xhad/kbot/pkg/knowledge"
	"github.com/xhad/kbot/pkg/prompt"
	"github.com/xhad/kbot/pkg/retriever"
)

type recordingCompleter struct {
	reply        string
	err          error
	systemPrompt string
	question     string
	calls        int
}

func (c *recordingCompleter) Complete(ctx context.Context, systemPrompt, question string) (string, error) {
	c.calls++
	c.systemPrompt = systemPrompt
	c.question = question
	return c.reply, c.err
}

func newService(t *testing.T, files map[string]string, completer *recordingCompleter) *chatbot.Service {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return chatbot.NewService(retriever.New(knowledge.New(dir)), prompt.NewBuilder(""), completer)
}

func TestAsk_NoMatchingContext(t *testing.T) {
	completer := &recordingCompleter{reply: "Enrollment closes in August."}
	svc := newService(t, map[string]string{"rules.txt": "uniform rules"}, completer)

	reply, err := svc.Ask(context.Background(), chatbot.AskRequest{Question: "What is the enrollment deadline?"})
	require.NoError(t, err)
	assert.Equal(t, "Enrollment closes in August.", reply)

	assert.Equal(t, "What is the enrollment deadline?", completer.question)
	assert.True(t, strings.HasPrefix(completer.systemPrompt, "You are a general assistant for visitors and parents."))
	assert.Contains(t, completer.systemPrompt, "The answer must be in English.")
	assert.NotContains(t, completer.systemPrompt, "Context:")
}

func TestAsk_MatchingContext(t *testing.T) {
	completer := &recordingCompleter{reply: "Students must attend daily."}
	svc := newService(t, map[string]string{"rules.txt": "attendance policy"}, completer)

	_, err := svc.Ask(context.Background(), chatbot.AskRequest{
		Question: "What is the attendance policy?",
		UserRole: prompt.RoleTeacher,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(completer.systemPrompt, "You are a specialized assistant for teachers"))
	assert.Contains(t, completer.systemPrompt, "--- content from file: rules.txt ---\nattendance policy")
	assert.Contains(t, completer.systemPrompt, "Note: base your answer only on the attached context.")
}

func TestAsk_QuestionRequired(t *testing.T) {
	completer := &recordingCompleter{}
	svc := newService(t, nil, completer)

	_, err := svc.Ask(context.Background(), chatbot.AskRequest{UserRole: prompt.RoleStudent})
	assert.ErrorIs(t, err, chatbot.ErrQuestionRequired)
	assert.Zero(t, completer.calls)
}

func TestAsk_CompletionFailure(t *testing.T) {
	completer := &recordingCompleter{err: errors.New("rate limited")}
	svc := newService(t, nil, completer)

	_, err := svc.Ask(context.Background(), chatbot.AskRequest{Question: "hello"})
	assert.EqualError(t, err, "rate limited")
}

func TestPrepare_Deterministic(t *testing.T) {
	svc := newService(t, map[string]string{"a.txt": "exam timetable", "b.txt": "bus routes"}, &recordingCompleter{})
	req := chatbot.AskRequest{Question: "exam bus", UserRole: prompt.RoleStudent}

	first, err := svc.Prepare(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Prepare(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAskStream_FallsBackToComplete(t *testing.T) {
	completer := &recordingCompleter{reply: "whole reply"}
	svc := newService(t, nil, completer)

	var chunks []string
	reply, err := svc.AskStream(context.Background(), chatbot.AskRequest{Question: "hi"}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "whole reply", reply)
	assert.Equal(t, []string{"whole reply"}, chunks)
}
