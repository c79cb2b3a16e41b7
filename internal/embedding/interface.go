package embedding

import "context"

// Embedding 定义了所有 embedding 模型（embedding oracle）需要实现的接口。
// 同一输入必须稳定地产生同一向量，索引重建检查依赖这一点。
type Embedding interface {
	// Embed 为单个文本生成嵌入向量。
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch 为一批文本生成嵌入向量。
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
