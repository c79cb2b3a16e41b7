package models

// RequestInfo 存储了关于 HTTP 请求的上下文信息，便于结构化日志检索。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
}

// ErrorInfo 存储了关于错误的结构化信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`        // 错误的类型，例如 "oracle_error", "store_error"
	StatusCode int    `json:"status_code,omitempty"` // 相关的HTTP状态码
}

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser      SpeakerRole = "user"      // 用户角色。
	SpeakerAssistant SpeakerRole = "assistant" // 助手角色。
	SpeakerSystem    SpeakerRole = "system"    // 系统角色。
)
