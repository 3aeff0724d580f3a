package model

import (
	"time"

	"gorm.io/datatypes"
)

// SavedCharacter is one save slot: a character snapshot plus the session
// context needed to resume play.
type SavedCharacter struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID    int64          `gorm:"index:idx_save_account;not null" json:"account_id"`
	CharID       string         `gorm:"size:36;not null" json:"char_id"`
	Name         string         `gorm:"size:32;not null" json:"name"`
	Level        int            `gorm:"not null" json:"level"`
	Experience   int            `json:"experience"`
	Health       int            `json:"health"`
	Mana         int            `json:"mana"`
	Strength     int            `json:"strength"`
	Agility      int            `json:"agility"`
	Intelligence int            `json:"intelligence"`
	Inventory    datatypes.JSON `json:"inventory"`
	Quests       datatypes.JSON `json:"quests"`
	SceneID      string         `gorm:"size:64" json:"scene_id"`
	Gold         int            `json:"gold"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
