// Package notify fans session events out to live subscribers, a short
// per-session history and the level leaderboard.
package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/game/session"
	"github.com/kasuganosora/textadventure/server/ranking"
)

const (
	// AnnounceChannel carries operator announcements to every stream.
	AnnounceChannel = "announce"

	historySize = 50
	opTimeout   = 2 * time.Second
)

// SessionChannel is the pub/sub channel for one session's events.
func SessionChannel(sessionID string) string { return "session:" + sessionID }

// AccountChannel is the pub/sub channel for all sessions of an account.
func AccountChannel(accountID int64) string {
	return "account:" + strconv.FormatInt(accountID, 10)
}

func historyKey(sessionID string) string { return "events:" + sessionID }

// Dispatcher implements session.EventSink.
type Dispatcher struct {
	pubsub cache.PubSub
	cache  cache.Cache
	board  *ranking.Board
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher. board may be nil.
func NewDispatcher(ps cache.PubSub, c cache.Cache, board *ranking.Board, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{pubsub: ps, cache: c, board: board, logger: logger}
}

// HandleEvent publishes e and records it. Failures are logged, never
// returned: losing a notification must not fail the game action.
func (d *Dispatcher) HandleEvent(e session.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	log := d.logger.With(
		zap.String("event", string(e.Type)),
		zap.String("session_id", e.SessionID),
		zap.String("char_id", e.CharID))

	payload, err := json.Marshal(e)
	if err != nil {
		log.Error("encode event", zap.Error(err))
		return
	}
	msg := string(payload)

	if err := d.pubsub.Publish(ctx, SessionChannel(e.SessionID), msg); err != nil {
		log.Warn("publish event", zap.Error(err))
	}
	if err := d.pubsub.Publish(ctx, AccountChannel(e.AccountID), msg); err != nil {
		log.Warn("publish event", zap.Error(err))
	}
	if err := d.cache.LPush(ctx, historyKey(e.SessionID), msg); err != nil {
		log.Warn("record event", zap.Error(err))
	} else if err := d.cache.LTrim(ctx, historyKey(e.SessionID), 0, historySize-1); err != nil {
		log.Warn("trim event history", zap.Error(err))
	}

	switch e.Type {
	case session.EventStarted, session.EventLevelUp, session.EventQuestTurnedIn:
		if d.board == nil || e.CharID == "" {
			break
		}
		if err := d.board.Update(ctx, e.CharID, e.CharName, e.Level, e.Experience); err != nil {
			log.Warn("update ranking", zap.Error(err))
		}
	case session.EventDied:
		log.Info("character died", zap.Int("level", e.Level))
	}
}

// Recent returns up to n of a session's latest events, newest first.
func (d *Dispatcher) Recent(ctx context.Context, sessionID string, n int) ([]json.RawMessage, error) {
	if n <= 0 || n > historySize {
		n = historySize
	}
	raw, err := d.cache.LRange(ctx, historyKey(sessionID), 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		out[i] = json.RawMessage(r)
	}
	return out, nil
}

// Forget drops a session's event history.
func (d *Dispatcher) Forget(ctx context.Context, sessionID string) error {
	return d.cache.Del(ctx, historyKey(sessionID))
}

// Announce publishes an operator message to every open stream.
func (d *Dispatcher) Announce(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]any{"message": message, "at": time.Now()})
	if err != nil {
		return err
	}
	return d.pubsub.Publish(ctx, AnnounceChannel, string(payload))
}
