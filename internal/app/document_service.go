package app

import (
	"context"
	"io"

	"docuchat/internal/rag"
	"docuchat/internal/repository"
)

// DocumentService handles uploads: ownership check, ingestion into the
// vector index, and flipping the session onto the document-grounded path.
type DocumentService struct {
	sessionRepo *repository.SessionRepository
	ingestor    *rag.Ingestor
	usage       *UsageService
}

func NewDocumentService(sessionRepo *repository.SessionRepository, ingestor *rag.Ingestor, usage *UsageService) *DocumentService {
	return &DocumentService{
		sessionRepo: sessionRepo,
		ingestor:    ingestor,
		usage:       usage,
	}
}

type UploadResult struct {
	SessionID  uint   `json:"session_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// Upload ingests one document into the caller's session. The session's
// HasDocuments flag is set only after the chunks are indexed, so a failed
// ingest leaves the session on the plain path.
func (s *DocumentService) Upload(ctx context.Context, userID, sessionID uint, filename string, r io.Reader) (*UploadResult, error) {
	if userID == 0 || sessionID == 0 || filename == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	count, err := s.ingestor.Ingest(ctx, filename, r, sessionKey(sessionID))
	if err != nil {
		return nil, err
	}

	if !session.HasDocuments {
		if err := s.sessionRepo.SetHasDocuments(sessionID, true); err != nil {
			return nil, err
		}
	}
	if s.usage != nil {
		s.usage.RecordDocumentIngested(userID)
	}
	return &UploadResult{SessionID: sessionID, Filename: filename, ChunkCount: count}, nil
}
