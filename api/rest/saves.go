package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/textadventure/server/game/session"
	mw "github.com/kasuganosora/textadventure/server/middleware"
	"github.com/kasuganosora/textadventure/server/save"
)

// SaveHandler manages an account's save slots.
type SaveHandler struct {
	store  *save.Store
	mgr    *session.Manager
	logger *zap.Logger
}

// NewSaveHandler creates a SaveHandler.
func NewSaveHandler(store *save.Store, mgr *session.Manager, logger *zap.Logger) *SaveHandler {
	return &SaveHandler{store: store, mgr: mgr, logger: logger}
}

type saveInfo struct {
	ID         int64     `json:"id"`
	CharID     string    `json:"char_id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
	Experience int       `json:"experience"`
	SceneID    string    `json:"scene_id"`
	Gold       int       `json:"gold"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func saveID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// List handles GET /api/saves.
func (h *SaveHandler) List(c *gin.Context) {
	rows, err := h.store.List(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]saveInfo, len(rows))
	for i, r := range rows {
		out[i] = saveInfo{
			ID:         r.ID,
			CharID:     r.CharID,
			Name:       r.Name,
			Level:      r.Level,
			Experience: r.Experience,
			SceneID:    r.SceneID,
			Gold:       r.Gold,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"saves": out})
}

// Load handles POST /api/saves/:id/load. It opens a new session playing
// the saved character.
func (h *SaveHandler) Load(c *gin.Context) {
	id, ok := saveID(c)
	if !ok {
		return
	}
	accountID := mw.GetAccountID(c)
	slot, err := h.store.Load(c.Request.Context(), accountID, id)
	if err != nil {
		fail(c, err)
		return
	}
	sess, err := h.mgr.Restore(accountID, slot.Character, slot.Save.SceneID, slot.Save.Gold, slot.Save.ID, slot.Quests)
	if err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("save loaded",
		zap.Int64("account_id", accountID),
		zap.Int64("save_id", id),
		zap.String("session_id", sess.ID))
	c.JSON(http.StatusCreated, gin.H{"session": sess.Snapshot()})
}

// Delete handles DELETE /api/saves/:id.
func (h *SaveHandler) Delete(c *gin.Context) {
	id, ok := saveID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), mw.GetAccountID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
