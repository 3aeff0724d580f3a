package session

import (
	"errors"
	"sync"
	"time"

	"github.com/kasuganosora/textadventure/server/game/character"
	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/kasuganosora/textadventure/server/game/quest"
	"github.com/kasuganosora/textadventure/server/game/world"
)

// State is the coarse lifecycle of a play session.
type State string

const (
	StateIdle     State = "idle"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
	StateGameOver State = "game_over"
)

// DefaultName is used when a game is started without a character name.
const DefaultName = "Adventurer"

var (
	ErrSessionNotFound   = errors.New("session: not found")
	ErrNotPlaying        = errors.New("session: game is not in progress")
	ErrBadTransition     = errors.New("session: invalid state transition")
	ErrQuestState        = errors.New("session: quest is not in the required state")
	ErrQuestNotTracked   = errors.New("session: quest not accepted")
	ErrObjectiveNotFound = errors.New("session: objective not found")
	ErrItemNotInScene    = errors.New("session: item not in scene")

	// Content lookups fail with the world's errors.
	ErrSceneNotFound = world.ErrSceneNotFound
	ErrNoExit        = world.ErrNoExit
	ErrQuestNotFound = world.ErrQuestNotFound
)

// Session is one play-through: a character, the scene it stands in and
// the quests it tracks. All methods lock the session, so operations on a
// character are serialized even when requests arrive concurrently.
type Session struct {
	ID        string
	AccountID int64

	mu        sync.Mutex
	world     *world.World
	sink      EventSink
	state     State
	sceneID   string
	char      *character.Character
	quests    map[string]*quest.Quest
	gold      int
	saveID    int64
	dirty     bool
	updatedAt time.Time
	pending   []Event
	newCharID func() string
}

func newSession(id string, accountID int64, w *world.World, sink EventSink, newCharID func() string) *Session {
	return &Session{
		ID:        id,
		AccountID: accountID,
		world:     w,
		sink:      sink,
		state:     StateIdle,
		quests:    make(map[string]*quest.Quest),
		updatedAt: time.Now(),
		newCharID: newCharID,
	}
}

// mutate runs fn under the session lock and dispatches the events it
// queued once the lock is released.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	err := fn()
	if err == nil {
		s.dirty = true
		s.updatedAt = time.Now()
	}
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range events {
		s.sink.HandleEvent(e)
	}
	return err
}

func (s *Session) emit(t EventType, data map[string]any) {
	e := Event{Type: t, SessionID: s.ID, AccountID: s.AccountID, Data: data, At: time.Now()}
	if s.char != nil {
		e.CharID = s.char.ID
		e.CharName = s.char.Name
		e.Level = s.char.Level
		e.Experience = s.char.Experience
	}
	s.pending = append(s.pending, e)
}

func (s *Session) requirePlaying() error {
	if s.state != StatePlaying || s.char == nil {
		return ErrNotPlaying
	}
	return nil
}

// Start begins a new game with a fresh character in the world's start
// scene. It is allowed from idle and after a game over.
func (s *Session) Start(name string) error {
	return s.mutate(func() error {
		if s.state != StateIdle && s.state != StateGameOver {
			return ErrBadTransition
		}
		if name == "" {
			name = DefaultName
		}
		s.char = character.New(s.newCharID(), name)
		s.sceneID = s.world.Start()
		s.quests = make(map[string]*quest.Quest)
		s.gold = 0
		s.saveID = 0
		s.state = StatePlaying
		s.emit(EventStarted, map[string]any{"scene": s.sceneID})
		return nil
	})
}

// restore puts a previously saved character back into the session
// together with its tracked quests. A character saved dead resumes in
// game_over.
func (s *Session) restore(c *character.Character, sceneID string, gold int, saveID int64, quests []quest.Quest) error {
	return s.mutate(func() error {
		if !s.world.HasScene(sceneID) {
			sceneID = s.world.Start()
		}
		s.char = c
		s.sceneID = sceneID
		s.gold = gold
		s.saveID = saveID
		s.quests = make(map[string]*quest.Quest, len(quests))
		for _, q := range quests {
			cp := q.Clone()
			s.quests[cp.ID] = &cp
		}
		if c.IsDead() {
			s.state = StateGameOver
			s.emit(EventGameOver, map[string]any{"reason": "died", "save_id": saveID})
			return nil
		}
		s.state = StatePlaying
		s.emit(EventStarted, map[string]any{"scene": s.sceneID, "save_id": saveID})
		return nil
	})
}

// Pause suspends a game in progress.
func (s *Session) Pause() error {
	return s.mutate(func() error {
		if s.state != StatePlaying {
			return ErrBadTransition
		}
		s.state = StatePaused
		return nil
	})
}

// Resume continues a paused game.
func (s *Session) Resume() error {
	return s.mutate(func() error {
		if s.state != StatePaused {
			return ErrBadTransition
		}
		s.state = StatePlaying
		return nil
	})
}

// End finishes the game.
func (s *Session) End() error {
	return s.mutate(func() error {
		if s.state != StatePlaying && s.state != StatePaused {
			return ErrBadTransition
		}
		s.state = StateGameOver
		s.emit(EventGameOver, map[string]any{"reason": "ended"})
		return nil
	})
}

// ChangeScene moves the character directly to a known scene.
func (s *Session) ChangeScene(sceneID string) error {
	return s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		if !s.world.HasScene(sceneID) {
			return world.ErrSceneNotFound
		}
		s.enterScene(sceneID)
		return nil
	})
}

// Move follows an exit of the current scene.
func (s *Session) Move(direction string) (string, error) {
	var to string
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		var err error
		if to, err = s.world.Exit(s.sceneID, direction); err != nil {
			return err
		}
		s.enterScene(to)
		return nil
	})
	return to, err
}

func (s *Session) enterScene(id string) {
	from := s.sceneID
	s.sceneID = id
	s.emit(EventSceneChanged, map[string]any{"from": from, "to": id})
	s.progressObjectives(quest.ObjectiveExplore, id)
}

// AddExperience grants experience and reports whether the character
// leveled up.
func (s *Session) AddExperience(amount int) (bool, error) {
	var leveled bool
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		var err error
		leveled, err = s.addExperience(amount)
		return err
	})
	return leveled, err
}

func (s *Session) addExperience(amount int) (bool, error) {
	leveled, err := s.char.AddExperience(amount)
	if err != nil {
		return false, err
	}
	if leveled {
		s.emit(EventLevelUp, map[string]any{"level": s.char.Level, "experience": s.char.Experience})
	}
	return leveled, nil
}

// TakeDamage applies damage. A character whose health drops to zero or
// below ends the game; its health is left as is.
func (s *Session) TakeDamage(amount int) (bool, error) {
	var dead bool
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		var err error
		if dead, err = s.char.TakeDamage(amount); err != nil {
			return err
		}
		if dead {
			s.state = StateGameOver
			s.emit(EventDied, map[string]any{"health": s.char.Health, "damage": amount})
			s.emit(EventGameOver, map[string]any{"reason": "died"})
		}
		return nil
	})
	return dead, err
}

// Heal restores health up to the fixed cap.
func (s *Session) Heal(amount int) error {
	return s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		return s.char.Heal(amount)
	})
}

// AddItem places an item in the inventory.
func (s *Session) AddItem(it item.Item) error {
	return s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		s.char.AddItem(it)
		s.progressObjectives(quest.ObjectiveCollect, it.ID)
		return nil
	})
}

// RemoveItem drops every inventory entry with itemID and returns how many
// were removed. Nothing matching is not an error.
func (s *Session) RemoveItem(itemID string) (int, error) {
	var n int
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		n = s.char.RemoveItem(itemID)
		return nil
	})
	return n, err
}

// UseItem consumes an inventory item.
func (s *Session) UseItem(itemID string) (character.UseResult, error) {
	var res character.UseResult
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		var err error
		res, err = s.char.UseItem(itemID)
		return err
	})
	return res, err
}

// PickUp moves an item lying in the current scene into the inventory.
func (s *Session) PickUp(itemID string) (item.Item, error) {
	var it item.Item
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		var ok bool
		if it, ok = s.world.TakeItem(s.sceneID, itemID); !ok {
			return ErrItemNotInScene
		}
		s.char.AddItem(it)
		s.progressObjectives(quest.ObjectiveCollect, it.ID)
		return nil
	})
	return it, err
}

// AcceptQuest starts tracking a quest from the world's definitions.
func (s *Session) AcceptQuest(questID string) (quest.Quest, error) {
	var out quest.Quest
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		if q, ok := s.quests[questID]; ok && !q.CanAccept() {
			return ErrQuestState
		}
		q, err := s.world.Quest(questID)
		if err != nil {
			return err
		}
		if !q.CanAccept() {
			return ErrQuestState
		}
		q.Status = quest.StatusAccepted
		if q.ObjectivesMet() {
			q.Status = quest.StatusCompleted
		}
		s.quests[questID] = &q
		s.emit(EventQuestAccepted, map[string]any{"quest_id": questID})
		if q.Status == quest.StatusCompleted {
			s.emit(EventQuestCompleted, map[string]any{"quest_id": questID})
		}
		out = q.Clone()
		return nil
	})
	return out, err
}

// ProgressQuest sets an objective's progress on an accepted quest.
func (s *Session) ProgressQuest(questID, objectiveID string, progress int) (quest.Quest, error) {
	var out quest.Quest
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		q, ok := s.quests[questID]
		if !ok {
			return ErrQuestNotTracked
		}
		if q.Status != quest.StatusAccepted {
			return ErrQuestState
		}
		if !q.UpdateProgress(objectiveID, progress) {
			return ErrObjectiveNotFound
		}
		if q.Status == quest.StatusCompleted {
			s.emit(EventQuestCompleted, map[string]any{"quest_id": questID})
		}
		out = q.Clone()
		return nil
	})
	return out, err
}

// progressObjectives advances every accepted objective of type t that
// targets target by one.
func (s *Session) progressObjectives(t quest.ObjectiveType, target string) {
	for id, q := range s.quests {
		if q.Status != quest.StatusAccepted {
			continue
		}
		for _, o := range q.Objectives {
			if o.Type == t && o.Target == target && !o.Done() {
				q.UpdateProgress(o.ID, o.Current+1)
			}
		}
		if q.Status == quest.StatusCompleted {
			s.emit(EventQuestCompleted, map[string]any{"quest_id": id})
		}
	}
}

// TurnInResult reports what turning in a quest granted.
type TurnInResult struct {
	Quest     quest.Quest   `json:"quest"`
	Rewards   quest.Rewards `json:"rewards"`
	LeveledUp bool          `json:"leveled_up"`
}

// TurnInQuest hands in a completed quest and grants its rewards:
// experience through the normal leveling rule, reward items into the
// inventory and gold onto the session.
func (s *Session) TurnInQuest(questID string) (TurnInResult, error) {
	var res TurnInResult
	err := s.mutate(func() error {
		if err := s.requirePlaying(); err != nil {
			return err
		}
		q, ok := s.quests[questID]
		if !ok {
			return ErrQuestNotTracked
		}
		if !q.CanTurnIn() {
			return ErrQuestState
		}
		leveled, err := s.addExperience(q.Rewards.Experience)
		if err != nil {
			return err
		}
		for _, it := range q.Rewards.Items {
			s.char.AddItem(it.Clone())
		}
		s.gold += q.Rewards.Gold
		q.Status = quest.StatusTurnedIn
		s.emit(EventQuestTurnedIn, map[string]any{"quest_id": questID, "experience": q.Rewards.Experience})
		cp := q.Clone()
		res = TurnInResult{Quest: cp, Rewards: cp.Rewards, LeveledUp: leveled}
		return nil
	})
	return res, err
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SceneID returns the scene the character stands in.
func (s *Session) SceneID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneID
}

// Character returns a deep copy of the character, or nil before Start.
func (s *Session) Character() *character.Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.char == nil {
		return nil
	}
	return s.char.Clone()
}

// Quests returns copies of the tracked quests, sorted for display.
func (s *Session) Quests() []quest.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]quest.Quest, 0, len(s.quests))
	for _, q := range s.quests {
		out = append(out, q.Clone())
	}
	quest.Sort(out)
	return out
}

// Checkpoint is a consistent copy of what a save slot stores.
type Checkpoint struct {
	SessionID string
	AccountID int64
	SaveID    int64
	SceneID   string
	Gold      int
	Character *character.Character
	Quests    []quest.Quest
	Dirty     bool
}

// Checkpoint returns the persistable state. ok is false before Start.
func (s *Session) Checkpoint() (Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.char == nil {
		return Checkpoint{}, false
	}
	quests := make([]quest.Quest, 0, len(s.quests))
	for _, q := range s.quests {
		quests = append(quests, q.Clone())
	}
	quest.Sort(quests)
	return Checkpoint{
		SessionID: s.ID,
		AccountID: s.AccountID,
		SaveID:    s.saveID,
		SceneID:   s.sceneID,
		Gold:      s.gold,
		Character: s.char.Clone(),
		Quests:    quests,
		Dirty:     s.dirty,
	}, true
}

// MarkSaved records the save slot the session was written to. The session
// stays dirty if it changed after the checkpoint was taken.
func (s *Session) MarkSaved(saveID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveID = saveID
	if !s.updatedAt.After(at) {
		s.dirty = false
	}
}

// UpdatedAt returns when the session last changed.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Snapshot projects the whole session to a plain map.
func (s *Session) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := map[string]any{
		"id":         s.ID,
		"state":      string(s.state),
		"scene":      s.sceneID,
		"gold":       s.gold,
		"save_id":    s.saveID,
		"updated_at": s.updatedAt,
		"character":  nil,
	}
	if s.char != nil {
		v["character"] = s.char.ToView()
	}
	quests := make([]quest.Quest, 0, len(s.quests))
	for _, q := range s.quests {
		quests = append(quests, *q)
	}
	quest.Sort(quests)
	v["quests"] = quest.ViewAll(quests)
	return v
}
