package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasuganosora/textadventure/server/game/character"
	"github.com/kasuganosora/textadventure/server/game/quest"
	"github.com/kasuganosora/textadventure/server/game/world"
)

// Manager tracks all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	world    *world.World
	sink     EventSink
	logger   *zap.Logger
	newID    func() string
}

// NewManager creates an empty Manager. A nil sink drops events.
func NewManager(w *world.World, sink EventSink, logger *zap.Logger) *Manager {
	if sink == nil {
		sink = nopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		world:    w,
		sink:     sink,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// World returns the content the sessions play in.
func (m *Manager) World() *world.World { return m.world }

// Create registers a new idle session for accountID.
func (m *Manager) Create(accountID int64) *Session {
	s := newSession(m.newID(), accountID, m.world, m.sink, m.newID)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.Int64("account_id", accountID))
	return s
}

// Start creates a session and starts a new game in it.
func (m *Manager) Start(accountID int64, name string) (*Session, error) {
	s := m.Create(accountID)
	if err := s.Start(name); err != nil {
		m.Remove(s.ID)
		return nil, err
	}
	return s, nil
}

// Restore creates a session holding a previously saved character and its
// quests.
func (m *Manager) Restore(accountID int64, c *character.Character, sceneID string, gold int, saveID int64, quests []quest.Quest) (*Session, error) {
	s := m.Create(accountID)
	if err := s.restore(c, sceneID, gold, saveID, quests); err != nil {
		m.Remove(s.ID)
		return nil, err
	}
	return s, nil
}

// Get returns the session with id or ErrSessionNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// GetOwned is Get restricted to sessions belonging to accountID. Sessions
// of other accounts are reported as not found.
func (m *Manager) GetOwned(id string, accountID int64) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if s.AccountID != accountID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove forgets a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// All returns the live sessions ordered by id.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByAccount returns the live sessions of one account.
func (m *Manager) ByAccount(accountID int64) []*Session {
	var out []*Session
	for _, s := range m.All() {
		if s.AccountID == accountID {
			out = append(out, s)
		}
	}
	return out
}

// Idle returns the sessions that have not changed since before cutoff.
func (m *Manager) Idle(cutoff time.Time) []*Session {
	var out []*Session
	for _, s := range m.All() {
		if s.UpdatedAt().Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Fanout delivers every event to each sink in order.
type Fanout []EventSink

func (f Fanout) HandleEvent(e Event) {
	for _, s := range f {
		s.HandleEvent(e)
	}
}
