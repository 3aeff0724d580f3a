package session

import "time"

// EventType names a notable change in a session.
type EventType string

const (
	EventStarted        EventType = "started"
	EventLevelUp        EventType = "level_up"
	EventDied           EventType = "died"
	EventGameOver       EventType = "game_over"
	EventSceneChanged   EventType = "scene_changed"
	EventQuestAccepted  EventType = "quest_accepted"
	EventQuestCompleted EventType = "quest_completed"
	EventQuestTurnedIn  EventType = "quest_turned_in"
)

// Event is emitted after the session lock is released.
type Event struct {
	Type       EventType      `json:"type"`
	SessionID  string         `json:"session_id"`
	AccountID  int64          `json:"account_id"`
	CharID     string         `json:"char_id"`
	CharName   string         `json:"char_name"`
	Level      int            `json:"level"`
	Experience int            `json:"experience"`
	Data       map[string]any `json:"data,omitempty"`
	At         time.Time      `json:"at"`
}

// EventSink receives session events. Implementations must not call back
// into the session that emitted the event.
type EventSink interface {
	HandleEvent(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) HandleEvent(e Event) { f(e) }

type nopSink struct{}

func (nopSink) HandleEvent(Event) {}
