package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/textadventure/server/game/character"
	"github.com/kasuganosora/textadventure/server/game/session"
	"github.com/kasuganosora/textadventure/server/save"
	"github.com/kasuganosora/textadventure/server/scheduler"
)

// statusOf maps a domain error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, character.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotPlaying),
		errors.Is(err, session.ErrBadTransition),
		errors.Is(err, session.ErrQuestState),
		errors.Is(err, save.ErrTooManySaves):
		return http.StatusConflict
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSceneNotFound),
		errors.Is(err, session.ErrQuestNotFound),
		errors.Is(err, session.ErrQuestNotTracked),
		errors.Is(err, session.ErrObjectiveNotFound),
		errors.Is(err, session.ErrItemNotInScene),
		errors.Is(err, character.ErrItemNotFound),
		errors.Is(err, save.ErrSaveNotFound),
		errors.Is(err, scheduler.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoExit),
		errors.Is(err, character.ErrItemNotUsable):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error body. Unmapped errors are hidden
// behind a generic message.
func fail(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
