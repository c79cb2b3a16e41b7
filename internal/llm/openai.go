package llm

import (
	"context"
	"fmt"

	"Mimic_1.0/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI API 的 LLM 客户端。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOpenAI 创建一个新的 OpenAI 客户端。
func NewOpenAI(model string, apiKey string) (*OpenAI, error) {
	config := openai.DefaultConfig(apiKey)
	client := openai.NewClientWithConfig(config)
	return &OpenAI{
		client: client,
		model:  model,
	}, nil
}

// Generate 使用 OpenAI API 生成单次回复文本。
func (o *OpenAI) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.toOpenAIRequest(messages, opts))
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream 使用 OpenAI API 以流式方式生成回复文本。
func (o *OpenAI) GenerateStream(ctx context.Context, messages []Message, opts Options) (<-chan string, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.toOpenAIRequest(messages, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	ch := make(chan string)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				return
			}
			if len(resp.Choices) > 0 {
				ch <- resp.Choices[0].Delta.Content
			}
		}
	}()
	return ch, nil
}

// toOpenAIRequest 将内部消息格式转换为 OpenAI 请求格式。
func (o *OpenAI) toOpenAIRequest(messages []Message, opts Options) openai.ChatCompletionRequest {
	var msgs []openai.ChatCompletionMessage
	if opts.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(models.SpeakerSystem),
			Content: opts.System,
		})
	}
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: &opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
}

var _ LLM = (*OpenAI)(nil)
