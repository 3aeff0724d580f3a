package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/textadventure/server/game/world"
)

// ContentHandler serves the read-only world content.
type ContentHandler struct {
	world *world.World
}

// NewContentHandler creates a ContentHandler.
func NewContentHandler(w *world.World) *ContentHandler {
	return &ContentHandler{world: w}
}

// Scenes handles GET /api/scenes.
func (h *ContentHandler) Scenes(c *gin.Context) {
	ids := h.world.SceneIDs()
	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		s, err := h.world.Scene(id)
		if err != nil {
			continue
		}
		out = append(out, gin.H{"id": s.ID, "name": s.Name})
	}
	c.JSON(http.StatusOK, gin.H{"scenes": out, "start": h.world.Start()})
}

// Scene handles GET /api/scenes/:id.
func (h *ContentHandler) Scene(c *gin.Context) {
	s, err := h.world.Scene(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scene": s.ToView()})
}
