package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Mimic_1.0/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	client *genai.Client // GenAI 客户端实例。
	model  string        // 要使用的 Gemini 模型名称。
}

// NewGemini 创建一个新的 Gemini 客户端。
func NewGemini(model, apiKey string) (*Gemini, error) {
	// 使用 API 密钥创建 GenAI 客户端。
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate 向 Gemini API 发送请求并返回生成的文本。
func (g *Gemini) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	session, parts := g.prepare(messages, opts)
	resp, err := session.SendMessage(ctx, parts...)
	if err != nil {
		return "", err
	}
	return textFromResponse(resp)
}

// GenerateStream 向 Gemini API 发送请求并返回流式文本通道。
func (g *Gemini) GenerateStream(ctx context.Context, messages []Message, opts Options) (<-chan string, error) {
	session, parts := g.prepare(messages, opts)
	iter := session.SendMessageStream(ctx, parts...)

	ch := make(chan string)
	// 启动一个 goroutine 来处理流式响应。
	go func() {
		defer close(ch)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				return
			}
			if text, err := textFromResponse(resp); err == nil {
				ch <- text
			}
		}
	}()
	return ch, nil
}

// prepare 按调用参数配置生成模型，并把历史消息装入聊天会话，
// 返回会话与最后一条消息的 parts。
func (g *Gemini) prepare(messages []Message, opts Options) (*genai.ChatSession, []genai.Part) {
	model := g.client.GenerativeModel(g.model)
	if opts.Temperature > 0 {
		model.SetTemperature(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.System)},
		}
	}

	session := model.StartChat()
	if len(messages) == 0 {
		return session, nil
	}
	for _, m := range messages[:len(messages)-1] {
		session.History = append(session.History, &genai.Content{
			Role:  toGeminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	last := messages[len(messages)-1]
	return session, []genai.Part{genai.Text(last.Content)}
}

// toGeminiRole 将内部角色映射为 Gemini 的 "user"/"model" 角色。
func toGeminiRole(role models.SpeakerRole) string {
	if role == models.SpeakerAssistant {
		return "model"
	}
	return "user"
}

// textFromResponse 从 GenAI 响应中提取所有文本部分。
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from gemini")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

var _ LLM = (*Gemini)(nil)
