package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ModelConfig 描述了某个提供商下的单个模型。
type ModelConfig struct {
	Name   string `yaml:"name"`   // 模型名称
	APIKey string `yaml:"apiKey"` // API 密钥
}

// LLMConfig 包含了生成模型（generation oracle）的配置。
type LLMConfig struct {
	Provider string      `yaml:"provider"` // LLM提供商 ("openai" 或 "gemini")
	OpenAI   ModelConfig `yaml:"openai"`   // OpenAI 模型配置
	Gemini   ModelConfig `yaml:"gemini"`   // Gemini 模型配置
}

// EmbeddingConfig 包含了向量模型（embedding oracle）的配置。
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // 提供商 ("openai", "gemini", "ollama", "huggingface")
	Model    string `yaml:"model"`    // 模型名称
	APIKey   string `yaml:"apiKey"`   // API 密钥
	BaseURL  string `yaml:"baseURL"`  // 服务基础 URL (ollama / huggingface 使用)
}

// RerankConfig 包含了相关性打分服务（relevance oracle）的配置。
type RerankConfig struct {
	APIKey string `yaml:"apiKey"` // Cohere API 密钥
	Model  string `yaml:"model"`  // rerank 模型名称
}

// RetrievalConfig 控制混合检索的行为。
type RetrievalConfig struct {
	KInitial     int    `yaml:"kInitial"`     // 重排前的初始候选数量 (默认 20)
	KFinal       int    `yaml:"kFinal"`       // 重排后的最终候选数量 (默认 5)
	DenseBackend string `yaml:"denseBackend"` // 稠密索引后端 ("memory" 或 "milvus")
}

// StyleConfig 控制生成与修订循环的行为。
type StyleConfig struct {
	MaxReviseLoops       int `yaml:"maxReviseLoops"`       // 修订循环上限 (默认 2)
	LatencyBudgetSeconds int `yaml:"latencyBudgetSeconds"` // 单轮处理的延迟预算 (秒)
}

// PersonaConfig 指向角色工件的存储目录。
type PersonaConfig struct {
	Dir     string `yaml:"dir"`     // 角色工件根目录
	Default string `yaml:"default"` // 默认角色名称 (可为空)
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"` // 是否启用回合事件发布
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topics  []string `yaml:"topics"`  // Kafka 主题列表
}

// MilvusConfig 定义了 Milvus 向量数据库的连接配置（denseBackend 为 "milvus" 时使用）。
type MilvusConfig struct {
	Address        string `yaml:"address"`        // Milvus 服务地址
	CollectionName string `yaml:"collectionName"` // 集合名称
	Dim            int    `yaml:"dim"`            // 向量维度
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	MongoDB MongoConfig  `yaml:"mongodb"` // MongoDB 数据库配置
	Redis   RedisConfig  `yaml:"redis"`   // Redis 数据库配置
	Kafka   KafkaConfig  `yaml:"kafka"`   // Kafka 消息队列配置
	Milvus  MilvusConfig `yaml:"milvus"`  // Milvus 向量数据库配置
}

// RateLimiterConfig 定义了聊天接口限流器的配置。
type RateLimiterConfig struct {
	Enabled  bool    `yaml:"enabled"`  // 是否启用限流
	Rate     float64 `yaml:"rate"`     // 每秒补充令牌数
	Capacity float64 `yaml:"capacity"` // 令牌桶容量
}

// MiddlewareConfig 包含 HTTP 中间件的配置。
type MiddlewareConfig struct {
	RateLimiter RateLimiterConfig `yaml:"rateLimiter"`
}

// ServerConfig 定义了 HTTP 服务器的配置。
type ServerConfig struct {
	HTTPAddr string `yaml:"httpAddr"` // HTTP 监听地址 (例如: ":8080")
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Rerank     RerankConfig     `yaml:"rerank"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Style      StyleConfig      `yaml:"style"`
	Persona    PersonaConfig    `yaml:"persona"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// LoadConfig 从指定路径读取并解析 YAML 配置文件。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	// 将 YAML 内容解析到 cfg 结构体中。
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults 为未设置的检索与风格参数填入默认值。
func (c *AppConfig) applyDefaults() {
	if c.Retrieval.KInitial <= 0 {
		c.Retrieval.KInitial = 20
	}
	if c.Retrieval.KFinal <= 0 {
		c.Retrieval.KFinal = 5
	}
	if c.Retrieval.DenseBackend == "" {
		c.Retrieval.DenseBackend = "memory"
	}
	if c.Style.MaxReviseLoops <= 0 {
		c.Style.MaxReviseLoops = 2
	}
	if c.Style.LatencyBudgetSeconds <= 0 {
		c.Style.LatencyBudgetSeconds = 30
	}
}
