// ABOUTME: OpenAI-compatible Session implementation over openai-go.
// ABOUTME: Supports base-URL overrides so OpenRouter-style endpoints work.

package completion

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Config carries the opaque startup parameters for the completion service.
type Config struct {
	APIKey  string
	BaseURL string // empty means the library default endpoint
	Model   string
}

// OpenAISession talks to an OpenAI-compatible chat-completion endpoint,
// keeping a bounded conversation history across calls.
type OpenAISession struct {
	client openai.Client

	mu          sync.Mutex
	model       string
	temperature float64
	history     []openai.ChatCompletionMessageParamUnion
	outstanding bool
}

// NewSession creates a session from config. Model and temperature may be
// adjusted later via the Session setters.
func NewSession(cfg Config) *OpenAISession {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAISession{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// SetModel selects the model for subsequent calls.
func (s *OpenAISession) SetModel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = name
}

// SetTemperature sets the sampling temperature for subsequent calls.
func (s *OpenAISession) SetTemperature(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = t
}

// Send appends prompt as a user turn and performs the blocking round-trip.
// The returned Reply occupies the session's single-flight slot until Close.
func (s *OpenAISession) Send(ctx context.Context, prompt string, continueConversation bool) (*Reply, error) {
	s.mu.Lock()
	if s.outstanding {
		s.mu.Unlock()
		return nil, ErrReplyOutstanding
	}
	if !continueConversation {
		s.history = nil
	}
	s.history = append(s.history, openai.UserMessage(prompt))
	s.trimHistoryLocked()

	messages := make([]openai.ChatCompletionMessageParamUnion, len(s.history))
	copy(messages, s.history)
	model := s.model
	temperature := s.temperature
	s.outstanding = true
	s.mu.Unlock()

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		s.releaseSlot()
		return nil, fmt.Errorf("completion call: %w", err)
	}
	if len(resp.Choices) == 0 {
		s.releaseSlot()
		return nil, ErrEmptyResponse
	}

	text := resp.Choices[0].Message.Content
	return NewReply(text, func() { s.commit(text) }), nil
}

// releaseSlot frees the single-flight slot after a failed call.
func (s *OpenAISession) releaseSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding = false
}

// commit releases the slot and records the assistant turn in the history.
func (s *OpenAISession) commit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding = false
	if text != "" {
		s.history = append(s.history, openai.AssistantMessage(text))
		s.trimHistoryLocked()
	}
}

// trimHistoryLocked drops the oldest turns past MaxHistory. Must be called
// with mu held.
func (s *OpenAISession) trimHistoryLocked() {
	if over := len(s.history) - MaxHistory; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}

// historyLen reports the current history length, for tests.
func (s *OpenAISession) historyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
