package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pulseboard/internal/client/telegram"
	"pulseboard/internal/service"
)

const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type TelegramWebhookHandler struct {
	Telegram *service.TelegramSyncService
	Secret   string
	Logger   *zap.Logger
}

func (h *TelegramWebhookHandler) Register(r *gin.Engine) {
	r.POST("/api/telegram/webhook", h.webhook)
}

// @Summary Telegram push delivery endpoint
// @Tags telegram
// @Success 200 {object} map[string]bool
// @Router /api/telegram/webhook [post]
func (h *TelegramWebhookHandler) webhook(c *gin.Context) {
	if h.Secret != "" && c.GetHeader(webhookSecretHeader) != h.Secret {
		Error(c, http.StatusUnauthorized, "invalid webhook secret", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		Error(c, http.StatusBadRequest, "cannot read body", nil)
		return
	}

	var update telegram.Update
	if err := json.Unmarshal(body, &update); err != nil {
		Error(c, http.StatusBadRequest, "invalid update payload", nil)
		return
	}

	// Telegram retries on non-200, so the delivery is acknowledged first
	// and the upsert happens off the request path.
	if h.Telegram != nil {
		env := telegram.Envelope{Update: update, Raw: body}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := h.Telegram.ProcessUpdate(ctx, env, nil); err != nil && h.Logger != nil {
				h.Logger.Warn("webhook update processing failed", zap.Error(err))
			}
		}()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
