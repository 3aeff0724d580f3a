package ranking

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/model"
)

const (
	zKey    = "ranking:level"
	infoKey = "ranking:chars"

	// levelWeight keeps level dominant over experience in the score.
	levelWeight = 1_000_000
)

// Entry is one row of the level leaderboard.
type Entry struct {
	Rank       int    `json:"rank"`
	CharID     string `json:"char_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
}

// Board is the level leaderboard: a sorted set ordered by level, then
// experience, with display data kept in a hash beside it. Saved
// characters are the fallback when the cache is empty.
type Board struct {
	cache  cache.Cache
	db     *gorm.DB
	size   int
	logger *zap.Logger
}

// NewBoard creates a Board keeping at most size entries in view.
func NewBoard(c cache.Cache, db *gorm.DB, size int, logger *zap.Logger) *Board {
	if size <= 0 {
		size = 100
	}
	return &Board{cache: c, db: db, size: size, logger: logger}
}

// Size is the maximum number of entries Top returns.
func (b *Board) Size() int { return b.size }

func score(level, exp int) float64 {
	return float64(level)*levelWeight + float64(exp)
}

// Update records a character's current level and experience.
func (b *Board) Update(ctx context.Context, charID, name string, level, exp int) error {
	info, err := json.Marshal(Entry{CharID: charID, Name: name, Level: level, Experience: exp})
	if err != nil {
		return err
	}
	if err := b.cache.HSet(ctx, infoKey, charID, string(info)); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	if err := b.cache.ZAdd(ctx, zKey, score(level, exp), charID); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	return nil
}

// Remove drops a character from the board.
func (b *Board) Remove(ctx context.Context, charID string) error {
	if err := b.cache.ZRem(ctx, zKey, charID); err != nil {
		return err
	}
	return b.cache.HDel(ctx, infoKey, charID)
}

// Top returns up to limit entries, best first.
func (b *Board) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > b.size {
		limit = b.size
	}
	ids, err := b.cache.ZRevRange(ctx, zKey, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	if len(ids) == 0 {
		return b.fromSaves(ctx, limit)
	}
	infos, err := b.cache.HGetAll(ctx, infoKey)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		var e Entry
		if raw, ok := infos[id]; ok {
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				b.logger.Warn("bad ranking entry", zap.String("char_id", id), zap.Error(err))
			}
		}
		e.CharID = id
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, nil
}

// fromSaves reads the best saved characters, one row per character.
func (b *Board) fromSaves(ctx context.Context, limit int) ([]Entry, error) {
	var rows []model.SavedCharacter
	err := b.db.WithContext(ctx).
		Order("level DESC, experience DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	seen := make(map[string]bool)
	out := make([]Entry, 0, limit)
	for _, r := range rows {
		if seen[r.CharID] {
			continue
		}
		seen[r.CharID] = true
		out = append(out, Entry{
			Rank:       len(out) + 1,
			CharID:     r.CharID,
			Name:       r.Name,
			Level:      r.Level,
			Experience: r.Experience,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Rebuild repopulates the cache from saved characters. It returns how
// many characters were written.
func (b *Board) Rebuild(ctx context.Context) (int, error) {
	entries, err := b.fromSaves(ctx, b.size)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := b.Update(ctx, e.CharID, e.Name, e.Level, e.Experience); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}
