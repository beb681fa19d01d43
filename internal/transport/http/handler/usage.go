package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/model"
	"docuchat/internal/transport/http/response"
)

type UsageHandler struct {
	usageService *app.UsageService
}

func NewUsageHandler(usageService *app.UsageService) *UsageHandler {
	return &UsageHandler{usageService: usageService}
}

type usageStatView struct {
	Day               string         `json:"day"`
	MessagesSent      int            `json:"messages_sent"`
	SessionsCreated   int            `json:"sessions_created"`
	WebSearches       int            `json:"web_searches"`
	DocumentsIngested int            `json:"documents_ingested"`
	ModelUsage        map[string]int `json:"model_usage"`
}

// Stats lists the caller's recent daily aggregates, newest first.
func (h *UsageHandler) Stats(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	limit := 30
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	stats, err := h.usageService.ListStats(userID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load usage stats failed")
		return
	}

	views := make([]usageStatView, 0, len(stats))
	for _, stat := range stats {
		views = append(views, toUsageView(stat))
	}
	response.OK(c, views)
}

func toUsageView(stat model.UsageStat) usageStatView {
	return usageStatView{
		Day:               stat.Day,
		MessagesSent:      stat.MessagesSent,
		SessionsCreated:   stat.SessionsCreated,
		WebSearches:       stat.WebSearches,
		DocumentsIngested: stat.DocumentsIngested,
		ModelUsage:        stat.ModelUsageMap(),
	}
}
