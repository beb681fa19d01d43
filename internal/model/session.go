package model

import "time"

// Session binds a conversation's turns and its uploaded documents together.
// HasDocuments is the sole switch between the plain-chat and RAG paths.
type Session struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Title        string    `gorm:"size:128;not null" json:"title"`
	HasDocuments bool      `gorm:"not null;default:false" json:"has_documents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
