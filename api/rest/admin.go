package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/textadventure/server/game/session"
	"github.com/kasuganosora/textadventure/server/model"
	"github.com/kasuganosora/textadventure/server/notify"
	"github.com/kasuganosora/textadventure/server/ranking"
	"github.com/kasuganosora/textadventure/server/save"
	"github.com/kasuganosora/textadventure/server/scheduler"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db     *gorm.DB
	mgr    *session.Manager
	store  *save.Store
	board  *ranking.Board
	disp   *notify.Dispatcher
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	db *gorm.DB,
	mgr *session.Manager,
	store *save.Store,
	board *ranking.Board,
	disp *notify.Dispatcher,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{db: db, mgr: mgr, store: store, board: board, disp: disp, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	states := map[session.State]int{}
	for _, s := range h.mgr.All() {
		states[s.State()]++
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions":        h.mgr.Count(),
		"sessions_by":     states,
		"scenes":          len(h.mgr.World().SceneIDs()),
		"scheduler_tasks": len(h.sched.Tasks()),
	})
}

// ListSessions returns a summary of every live session.
// GET /api/admin/sessions
func (h *AdminHandler) ListSessions(c *gin.Context) {
	type sessionInfo struct {
		ID        string        `json:"id"`
		AccountID int64         `json:"account_id"`
		State     session.State `json:"state"`
		SceneID   string        `json:"scene_id"`
		CharName  string        `json:"char_name,omitempty"`
		Level     int           `json:"level,omitempty"`
	}
	sessions := h.mgr.All()
	result := make([]sessionInfo, 0, len(sessions))
	for _, s := range sessions {
		info := sessionInfo{
			ID:        s.ID,
			AccountID: s.AccountID,
			State:     s.State(),
			SceneID:   s.SceneID(),
		}
		if ch := s.Character(); ch != nil {
			info.CharName = ch.Name
			info.Level = ch.Level
		}
		result = append(result, info)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": result, "count": len(result)})
}

// close saves a session's unsaved progress and drops it.
func (h *AdminHandler) close(c *gin.Context, s *session.Session) {
	if cp, ok := s.Checkpoint(); ok && cp.Dirty {
		if _, err := h.store.SaveSession(c.Request.Context(), s); err != nil {
			h.logger.Warn("save before kick", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
	h.mgr.Remove(s.ID)
	_ = h.disp.Forget(c.Request.Context(), s.ID)
}

// KickSession closes a session by ID.
// POST /api/admin/sessions/:id/kick
func (h *AdminHandler) KickSession(c *gin.Context) {
	s, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.close(c, s)
	h.logger.Info("admin kicked session", zap.String("session_id", s.ID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// BanAccount bans or unbans an account.
// POST /api/admin/accounts/:id/ban
func (h *AdminHandler) BanAccount(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Ban bool `json:"ban"`
	}
	_ = c.ShouldBindJSON(&req)

	status := 1
	if req.Ban {
		status = 0
	}
	result := h.db.Model(&model.Account{}).Where("id = ?", accountID).Update("status", status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	if req.Ban {
		for _, s := range h.mgr.ByAccount(accountID) {
			h.close(c, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": status})
}

// Announce broadcasts a message to every open event stream.
// POST /api/admin/announce
func (h *AdminHandler) Announce(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.disp.Announce(c.Request.Context(), req.Message); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RebuildRanking repopulates the leaderboard from saved characters.
// POST /api/admin/ranking/rebuild
func (h *AdminHandler) RebuildRanking(c *gin.Context) {
	n, err := h.board.Rebuild(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

// ListSchedulerTasks returns the registered tasks and their run counts.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Tasks()})
}

// RunTask triggers a scheduler task immediately.
// POST /api/admin/scheduler/:name/run
func (h *AdminHandler) RunTask(c *gin.Context) {
	if err := h.sched.RunNow(c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// If adminKey is empty all admin endpoints answer 503; set
// server.admin_key in config to enable them.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
