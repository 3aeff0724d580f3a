package sse

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/config"
	"github.com/kasuganosora/textadventure/server/game/session"
	mw "github.com/kasuganosora/textadventure/server/middleware"
	"github.com/kasuganosora/textadventure/server/notify"
)

const keepAlive = 30 * time.Second

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub    cache.PubSub
	sessions  *session.Manager
	sec       config.SecurityConfig
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, sessions *session.Manager, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, sessions: sessions, sec: sec, keepAlive: keepAlive, logger: logger}
}

// Mount registers GET /sse behind token auth.
func (h *Handler) Mount(r gin.IRouter, store cache.Cache) {
	r.GET("/sse", mw.Auth(h.sec, store), h.ServeSSE)
}

func (h *Handler) originAllowed(origin string) bool {
	if origin == "" || len(h.sec.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.sec.AllowedOrigins, origin)
}

// ServeSSE handles GET /sse?token=<jwt>[&session=<id>].
// With a session id it streams that session's game events; without one it
// streams events from every session of the account. Operator
// announcements are delivered either way.
func (h *Handler) ServeSSE(c *gin.Context) {
	if !h.originAllowed(c.GetHeader("Origin")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	accountID := mw.GetAccountID(c)
	channel := notify.AccountChannel(accountID)
	if sid := c.Query("session"); sid != "" {
		if _, err := h.sessions.GetOwned(sid, accountID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		channel = notify.SessionChannel(sid)
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, channel, notify.AnnounceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stream unavailable"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"channel\":%q}\n\n", channel)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			name := "game"
			if msg.Channel == notify.AnnounceChannel {
				name = "announce"
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
