package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListByUserID(userID uint) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) GetByIDAndUserID(sessionID, userID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) Rename(sessionID, userID uint, title string) error {
	if err := r.db.Model(&model.Session{}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Update("title", title).Error; err != nil {
		return fmt.Errorf("rename session failed: %w", err)
	}
	return nil
}

// SetHasDocuments flips the RAG routing flag; flipped true on the first
// successful ingestion and never back.
func (r *SessionRepository) SetHasDocuments(sessionID uint, has bool) error {
	if err := r.db.Model(&model.Session{}).
		Where("id = ?", sessionID).
		Update("has_documents", has).Error; err != nil {
		return fmt.Errorf("set has_documents failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByIDAndUserID(sessionID, userID uint) error {
	if err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllByUserID(userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.Session{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list session ids failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.db.Where("user_id = ?", userID).Delete(&model.Session{}).Error; err != nil {
		return nil, fmt.Errorf("delete all sessions failed: %w", err)
	}
	return ids, nil
}
