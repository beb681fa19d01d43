package app

import (
	"log"
	"time"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

// UsageService maintains per-user daily activity aggregates. Recording is
// best effort: a failed counter update is logged and never fails the
// operation it annotates.
type UsageService struct {
	repo *repository.UsageStatRepository
	now  func() time.Time
}

func NewUsageService(repo *repository.UsageStatRepository) *UsageService {
	return &UsageService{repo: repo, now: time.Now}
}

func (s *UsageService) RecordMessage(userID uint, modelName string) {
	s.update(userID, func(stat *model.UsageStat) {
		stat.MessagesSent++
		if modelName != "" {
			usage := stat.ModelUsageMap()
			usage[modelName]++
			stat.SetModelUsage(usage)
		}
	})
}

func (s *UsageService) RecordSessionCreated(userID uint) {
	s.update(userID, func(stat *model.UsageStat) { stat.SessionsCreated++ })
}

func (s *UsageService) RecordWebSearch(userID uint) {
	s.update(userID, func(stat *model.UsageStat) { stat.WebSearches++ })
}

func (s *UsageService) RecordDocumentIngested(userID uint) {
	s.update(userID, func(stat *model.UsageStat) { stat.DocumentsIngested++ })
}

func (s *UsageService) RecordTokens(userID uint, tokens int) {
	if tokens <= 0 {
		return
	}
	s.update(userID, func(stat *model.UsageStat) { stat.TokensUsed += tokens })
}

// ListStats returns up to limit recent daily aggregates, newest first.
func (s *UsageService) ListStats(userID uint, limit int) ([]model.UsageStat, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUserID(userID, limit)
}

func (s *UsageService) update(userID uint, apply func(*model.UsageStat)) {
	if userID == 0 {
		return
	}
	day := s.now().UTC().Format("2006-01-02")
	stat, err := s.repo.GetOrCreate(userID, day)
	if err != nil {
		log.Printf("usage stat load failed for user %d: %v", userID, err)
		return
	}
	apply(stat)
	if err := s.repo.Save(stat); err != nil {
		log.Printf("usage stat save failed for user %d: %v", userID, err)
	}
}
