// Package save persists characters into per-account save slots.
//
// Rows hold the character's attributes as columns and its inventory as a
// JSON array of item views, so loading goes through character.FromView
// exactly like any other plain-map source. Tracked quests are stored as a
// JSON array of quest records with their progress and status.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kasuganosora/textadventure/server/game/character"
	"github.com/kasuganosora/textadventure/server/game/item"
	"github.com/kasuganosora/textadventure/server/game/quest"
	"github.com/kasuganosora/textadventure/server/game/session"
	"github.com/kasuganosora/textadventure/server/model"
)

var (
	ErrSaveNotFound = errors.New("save: not found")
	ErrTooManySaves = errors.New("save: save slot limit reached")
)

// Store reads and writes save slots.
type Store struct {
	db       *gorm.DB
	maxSaves int
	logger   *zap.Logger
}

// NewStore creates a Store. maxSaves caps slots per account; 0 means
// unlimited.
func NewStore(db *gorm.DB, maxSaves int, logger *zap.Logger) *Store {
	return &Store{db: db, maxSaves: maxSaves, logger: logger}
}

// Slot is a loaded save: the row plus the character rebuilt from it.
type Slot struct {
	Save      model.SavedCharacter
	Character *character.Character
	Quests    []quest.Quest
}

// Save writes c and its tracked quests into slot saveID of accountID, or
// into a new slot when saveID is 0.
func (s *Store) Save(ctx context.Context, accountID, saveID int64, c *character.Character, sceneID string, gold int, quests []quest.Quest) (*model.SavedCharacter, error) {
	inv, err := json.Marshal(item.ViewAll(c.Inventory))
	if err != nil {
		return nil, fmt.Errorf("save: encode inventory: %w", err)
	}
	if quests == nil {
		quests = []quest.Quest{}
	}
	qs, err := json.Marshal(quests)
	if err != nil {
		return nil, fmt.Errorf("save: encode quests: %w", err)
	}
	row := model.SavedCharacter{
		ID:           saveID,
		AccountID:    accountID,
		CharID:       c.ID,
		Name:         c.Name,
		Level:        c.Level,
		Experience:   c.Experience,
		Health:       c.Health,
		Mana:         c.Mana,
		Strength:     c.Strength,
		Agility:      c.Agility,
		Intelligence: c.Intelligence,
		Inventory:    datatypes.JSON(inv),
		Quests:       datatypes.JSON(qs),
		SceneID:      sceneID,
		Gold:         gold,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if saveID == 0 {
			if s.maxSaves > 0 {
				var n int64
				if err := tx.Model(&model.SavedCharacter{}).Where("account_id = ?", accountID).Count(&n).Error; err != nil {
					return err
				}
				if n >= int64(s.maxSaves) {
					return ErrTooManySaves
				}
			}
			return tx.Create(&row).Error
		}
		var existing model.SavedCharacter
		if err := tx.Where("id = ? AND account_id = ?", saveID, accountID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaveNotFound
			}
			return err
		}
		row.CreatedAt = existing.CreatedAt
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Load reads one slot owned by accountID.
func (s *Store) Load(ctx context.Context, accountID, saveID int64) (*Slot, error) {
	var row model.SavedCharacter
	err := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", saveID, accountID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaveNotFound
	}
	if err != nil {
		return nil, err
	}
	c, err := FromRow(row)
	if err != nil {
		return nil, err
	}
	quests, err := QuestsFromRow(row)
	if err != nil {
		return nil, err
	}
	return &Slot{Save: row, Character: c, Quests: quests}, nil
}

// QuestsFromRow decodes the quests stored in row. Rows written before
// quests were persisted decode to none.
func QuestsFromRow(row model.SavedCharacter) ([]quest.Quest, error) {
	var quests []quest.Quest
	if len(row.Quests) == 0 {
		return quests, nil
	}
	if err := json.Unmarshal(row.Quests, &quests); err != nil {
		return nil, fmt.Errorf("save %d: decode quests: %w", row.ID, err)
	}
	for _, q := range quests {
		if q.ID == "" {
			return nil, fmt.Errorf("save %d: quest without id", row.ID)
		}
	}
	return quests, nil
}

// FromRow rebuilds the character stored in row.
func FromRow(row model.SavedCharacter) (*character.Character, error) {
	var inv []any
	if len(row.Inventory) > 0 {
		if err := json.Unmarshal(row.Inventory, &inv); err != nil {
			return nil, fmt.Errorf("save %d: decode inventory: %w", row.ID, err)
		}
	}
	c, err := character.FromView(map[string]any{
		"id":           row.CharID,
		"name":         row.Name,
		"level":        row.Level,
		"experience":   row.Experience,
		"health":       row.Health,
		"mana":         row.Mana,
		"strength":     row.Strength,
		"agility":      row.Agility,
		"intelligence": row.Intelligence,
		"inventory":    inv,
	})
	if err != nil {
		return nil, fmt.Errorf("save %d: %w", row.ID, err)
	}
	return c, nil
}

// List returns an account's slots, most recently written first.
func (s *Store) List(ctx context.Context, accountID int64) ([]model.SavedCharacter, error) {
	var rows []model.SavedCharacter
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("updated_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// Delete removes one slot owned by accountID.
func (s *Store) Delete(ctx context.Context, accountID, saveID int64) error {
	res := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", saveID, accountID).Delete(&model.SavedCharacter{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSaveNotFound
	}
	return nil
}

// SaveSession writes the session's character and quests to its slot, creating one
// on first save. It returns the slot id.
func (s *Store) SaveSession(ctx context.Context, sess *session.Session) (int64, error) {
	taken := time.Now()
	cp, ok := sess.Checkpoint()
	if !ok {
		return 0, session.ErrNotPlaying
	}
	row, err := s.Save(ctx, cp.AccountID, cp.SaveID, cp.Character, cp.SceneID, cp.Gold, cp.Quests)
	if errors.Is(err, ErrSaveNotFound) && cp.SaveID != 0 {
		// the slot was deleted while the session was live
		row, err = s.Save(ctx, cp.AccountID, 0, cp.Character, cp.SceneID, cp.Gold, cp.Quests)
	}
	if err != nil {
		return 0, err
	}
	sess.MarkSaved(row.ID, taken)
	return row.ID, nil
}

// AutoSave writes every session with unsaved changes. Failures are
// logged and joined; the remaining sessions are still attempted.
func (s *Store) AutoSave(ctx context.Context, sessions []*session.Session) (int, error) {
	var (
		saved int
		errs  []error
	)
	for _, sess := range sessions {
		cp, ok := sess.Checkpoint()
		if !ok || !cp.Dirty {
			continue
		}
		if _, err := s.SaveSession(ctx, sess); err != nil {
			s.logger.Warn("autosave failed",
				zap.String("session_id", sess.ID),
				zap.Int64("account_id", sess.AccountID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
			continue
		}
		saved++
	}
	if saved > 0 {
		s.logger.Info("autosave complete", zap.Int("saved", saved))
	}
	return saved, errors.Join(errs...)
}
