package rest

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kasuganosora/textadventure/server/game/character"
	"github.com/kasuganosora/textadventure/server/game/session"
	"github.com/kasuganosora/textadventure/server/save"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{character.ErrInvalidAmount, http.StatusBadRequest},
		{session.ErrNotPlaying, http.StatusConflict},
		{session.ErrBadTransition, http.StatusConflict},
		{save.ErrTooManySaves, http.StatusConflict},
		{session.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", save.ErrSaveNotFound), http.StatusNotFound},
		{session.ErrNoExit, http.StatusUnprocessableEntity},
		{character.ErrItemNotUsable, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}
