package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records a state-changing request or a notable game event.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	SessionID  string         `gorm:"index:idx_audit_session;size:36" json:"session_id"`
	CharID     string         `gorm:"index:idx_audit_char;size:36" json:"char_id"`
	AccountID  *int64         `json:"account_id"`
	CharName   string         `gorm:"size:32" json:"char_name"`
	Action     string         `gorm:"size:64;not null" json:"action"`
	Request    datatypes.JSON `json:"request"`
	Response   datatypes.JSON `json:"response"`
	Error      string         `gorm:"type:text" json:"error"`
	IP         string         `gorm:"size:45" json:"ip"`
	SceneID    string         `gorm:"size:64" json:"scene_id"`
	DurationMs int            `json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
