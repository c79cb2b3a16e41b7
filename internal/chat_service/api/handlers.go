package api

import (
	"errors"
	"net/http"

	"Mimic_1.0/internal/chat_service/service"
	"Mimic_1.0/internal/chat_service/store"

	"github.com/gin-gonic/gin"
)

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	service *service.Service
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s *service.Service) *Handler {
	return &Handler{service: s}
}

// ChatRequest 定义了对话请求的 JSON 结构。
type ChatRequest struct {
	Message      string `json:"message" binding:"required"`
	UserID       string `json:"user_id" binding:"required"`
	SessionID    string `json:"session_id"`
	Persona      string `json:"persona"`
	IncludeTrace bool   `json:"include_trace"`
}

// Chat 处理一轮对话请求。
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Chat(c.Request.Context(), req.Persona, req.Message, req.UserID, req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPersonaNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrLatencyBudgetExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if !req.IncludeTrace {
		result.Trace = nil
	}
	c.JSON(http.StatusOK, result)
}

// Trace 返回一条已存储的调用链记录。
func (h *Handler) Trace(c *gin.Context) {
	trace, err := h.service.Trace(c.Request.Context(), c.Param("trace_id"))
	if err != nil {
		if errors.Is(err, store.ErrTraceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trace not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trace)
}

// ListPersonas 列出所有可用角色及其工件。
func (h *Handler) ListPersonas(c *gin.Context) {
	reports, err := h.service.Personas()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"default":  h.service.DefaultPersona(),
		"personas": reports,
	})
}

// SwitchPersonaRequest 定义了切换默认角色请求的 JSON 结构。
type SwitchPersonaRequest struct {
	Name string `json:"name" binding:"required"`
}

// SwitchPersona 切换默认角色。
func (h *Handler) SwitchPersona(c *gin.Context) {
	var req SwitchPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SwitchDefault(c.Request.Context(), req.Name); err != nil {
		if errors.Is(err, service.ErrPersonaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"default": req.Name})
}

// UpdateTaboosRequest 定义了更新禁忌列表请求的 JSON 结构。
type UpdateTaboosRequest struct {
	Taboos           []string `json:"taboos" binding:"required"`
	RedirectLanguage string   `json:"redirect_language"`
}

// UpdateTaboos 重写指定角色的禁忌列表并使其缓存失效。
func (h *Handler) UpdateTaboos(c *gin.Context) {
	var req UpdateTaboosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.UpdateTaboos(c.Param("name"), req.Taboos, req.RedirectLanguage); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "taboo list updated"})
}

// Health 健康检查。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
