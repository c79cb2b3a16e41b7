package agents

import (
	"context"
	"fmt"

	"Mimic_1.0/internal/llm"
)

// scriptedLLM replays canned responses in order and records every prompt.
type scriptedLLM struct {
	responses []string
	calls     int
	prompts   []string
}

func (s *scriptedLLM) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if len(messages) > 0 {
		s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	}
	if s.calls >= len(s.responses) {
		return "", fmt.Errorf("scripted llm exhausted after %d calls", s.calls)
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedLLM) GenerateStream(ctx context.Context, messages []llm.Message, opts llm.Options) (<-chan string, error) {
	resp, err := s.Generate(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan string, 1)
	ch <- resp
	close(ch)
	return ch, nil
}
