package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/textadventure/server/model"
	"github.com/kasuganosora/textadventure/server/testutil"
)

func newBoard(t *testing.T, size int) (*Board, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	return NewBoard(c, db, size, zap.NewNop()), db
}

func saveRow(t *testing.T, db *gorm.DB, charID, name string, level, exp int) {
	t.Helper()
	require.NoError(t, db.Create(&model.SavedCharacter{
		AccountID:  1,
		CharID:     charID,
		Name:       name,
		Level:      level,
		Experience: exp,
	}).Error)
}

func TestTop_OrdersByLevelThenExperience(t *testing.T) {
	b, _ := newBoard(t, 10)
	ctx := context.Background()

	require.NoError(t, b.Update(ctx, "a", "Alice", 2, -90))
	require.NoError(t, b.Update(ctx, "b", "Bob", 2, 50))
	require.NoError(t, b.Update(ctx, "c", "Cara", 1, 99))
	require.NoError(t, b.Update(ctx, "d", "Dan", 5, 0))

	top, err := b.Top(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, []string{"d", "b", "a", "c"}, []string{top[0].CharID, top[1].CharID, top[2].CharID, top[3].CharID})
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "Bob", top[1].Name)
	assert.Equal(t, -90, top[2].Experience)

	top, err = b.Top(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	require.NoError(t, b.Update(ctx, "c", "Cara", 9, 0))
	require.NoError(t, b.Remove(ctx, "d"))
	top, _ = b.Top(ctx, 1)
	assert.Equal(t, "c", top[0].CharID)
	assert.Equal(t, 9, top[0].Level)
}

func TestTop_FallsBackToSaves(t *testing.T) {
	b, db := newBoard(t, 10)
	ctx := context.Background()
	saveRow(t, db, "x", "Xena", 3, 10)
	saveRow(t, db, "x", "Xena", 2, 10) // older slot of the same character
	saveRow(t, db, "y", "Yuri", 4, 0)

	top, err := b.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "y", top[0].CharID)
	assert.Equal(t, "x", top[1].CharID)
	assert.Equal(t, 3, top[1].Level)

	n, err := b.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	score, err := b.cache.ZScore(ctx, zKey, "y")
	require.NoError(t, err)
	assert.Equal(t, 4.0*levelWeight, score)
}
