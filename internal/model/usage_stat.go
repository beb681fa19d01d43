package model

import (
	"encoding/json"
	"time"
)

// UsageStat is a per-user daily aggregate of activity.
type UsageStat struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	UserID            uint      `gorm:"not null;uniqueIndex:idx_usage_user_day" json:"user_id"`
	Day               string    `gorm:"size:10;not null;uniqueIndex:idx_usage_user_day" json:"day"` // YYYY-MM-DD
	MessagesSent      int       `gorm:"not null;default:0" json:"messages_sent"`
	TokensUsed        int       `gorm:"not null;default:0" json:"tokens_used"`
	SessionsCreated   int       `gorm:"not null;default:0" json:"sessions_created"`
	WebSearches       int       `gorm:"not null;default:0" json:"web_searches"`
	DocumentsIngested int       `gorm:"not null;default:0" json:"documents_ingested"`
	ModelUsage        string    `gorm:"type:text" json:"-"` // JSON object of model name -> count
	CreatedAt         time.Time `json:"-"`
	UpdatedAt         time.Time `json:"-"`
}

// ModelUsageMap returns the parsed per-model counters; empty on parse error.
func (u *UsageStat) ModelUsageMap() map[string]int {
	out := map[string]int{}
	if u.ModelUsage == "" {
		return out
	}
	_ = json.Unmarshal([]byte(u.ModelUsage), &out)
	return out
}

// SetModelUsage stores the per-model counters as JSON.
func (u *UsageStat) SetModelUsage(m map[string]int) {
	if len(m) == 0 {
		u.ModelUsage = "{}"
		return
	}
	b, _ := json.Marshal(m)
	u.ModelUsage = string(b)
}
