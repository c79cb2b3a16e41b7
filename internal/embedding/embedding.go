package embedding

import (
	"fmt"

	"Mimic_1.0/internal/config"
)

// NewEmdModel 根据配置创建并返回一个新的 Embedding 模型实例。
//
// provider 可以为 "gemini"、"openai"、"huggingface" 或 "ollama"；
// baseURL 仅被 huggingface 与 ollama 使用。
func NewEmdModel(cfg config.EmbeddingConfig) (Embedding, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGoogleModel(cfg.APIKey, cfg.Model)
	case "openai":
		return NewOpenAIModel(cfg.APIKey, cfg.Model)
	case "huggingface":
		return NewHuggingFaceModel(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "ollama":
		return NewOllamaModel(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
