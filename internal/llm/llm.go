package llm

import (
	"context"
	"fmt"

	"Mimic_1.0/internal/config"
	"Mimic_1.0/internal/models"
)

// Message 是发送给生成模型的一条对话消息。
type Message struct {
	Role    models.SpeakerRole // 消息角色 ("user" / "assistant" / "system")。
	Content string             // 消息文本内容。
}

// Options 控制单次生成调用的采样参数。
type Options struct {
	Temperature float32 // 采样温度。
	MaxTokens   int     // 生成内容的最大 token 数。
	System      string  // 可选的系统提示词。
}

// LLM 定义了所有生成模型客户端必须实现的通用接口。
// 流式接口仅用于展示层，核心管线只依赖单次生成。
type LLM interface {
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
	GenerateStream(ctx context.Context, messages []Message, opts Options) (<-chan string, error)
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
func NewClient(cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAI.Name, cfg.OpenAI.APIKey)
	case "gemini":
		return NewGemini(cfg.Gemini.Name, cfg.Gemini.APIKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
