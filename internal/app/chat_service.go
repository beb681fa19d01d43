package app

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/rag"
	"docuchat/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
)

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	responder    *rag.Responder
	index        rag.VectorIndex
	usage        *UsageService
	maxContext   int
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	responder *rag.Responder,
	index rag.VectorIndex,
	usage *UsageService,
	maxContext int,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 10
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		publisher:    publisher,
		historyCache: historyCache,
		responder:    responder,
		index:        index,
		usage:        usage,
		maxContext:   maxContext,
	}
}

type CreateSessionInput struct {
	UserID uint
	Title  string
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Chat"
	}

	session := &model.Session{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	if s.usage != nil {
		s.usage.RecordSessionCreated(input.UserID)
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

func (s *ChatService) GetSession(userID, sessionID uint) (*model.Session, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *ChatService) RenameSession(userID, sessionID uint, title string) error {
	title = strings.TrimSpace(title)
	if userID == 0 || sessionID == 0 || title == "" {
		return ErrInvalidInput
	}
	if _, err := s.GetSession(userID, sessionID); err != nil {
		return err
	}
	return s.sessionRepo.Rename(sessionID, userID, title)
}

// DeleteSession removes the session together with everything hanging off
// it: messages, the cached history, and the session's slice of the vector
// index. The index purge is best effort; orphaned vectors are unreachable
// anyway because retrieval always filters by session.
func (s *ChatService) DeleteSession(userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	if _, err := s.GetSession(userID, sessionID); err != nil {
		return err
	}
	if err := s.messageRepo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByIDAndUserID(sessionID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), sessionID)
	}
	s.purgeVectors(sessionID)
	return nil
}

// DeleteAllSessions clears every session the user owns.
func (s *ChatService) DeleteAllSessions(userID uint) (int, error) {
	if userID == 0 {
		return 0, ErrInvalidInput
	}
	ids, err := s.sessionRepo.DeleteAllByUserID(userID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.messageRepo.DeleteBySessionID(id); err != nil {
			log.Printf("delete messages for session %d failed: %v", id, err)
		}
		if s.historyCache != nil {
			_ = s.historyCache.DeleteHistory(context.Background(), id)
		}
		s.purgeVectors(id)
	}
	return len(ids), nil
}

func (s *ChatService) purgeVectors(sessionID uint) {
	if s.index == nil {
		return
	}
	if err := s.index.PurgeSession(context.Background(), sessionKey(sessionID)); err != nil {
		log.Printf("purge vectors for session %d failed: %v", sessionID, err)
	}
}

// GetHistory serves the conversation through the cache-aside path. A dirty
// marker set by in-flight writes keeps half-persisted turns from being
// cached.
func (s *ChatService) GetHistory(userID, sessionID uint, limit int) ([]model.Message, error) {
	if _, err := s.GetSession(userID, sessionID); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

type ChatRequest struct {
	UserID       uint
	SessionID    uint // 0 creates a new session titled after the message
	Content      string
	Model        string
	UseWebSearch bool
}

// Reply is a prepared answer whose fragments have not been consumed yet.
// The transport layer reads the session fields into headers before
// draining the stream.
type Reply struct {
	SessionID      uint
	SessionCreated bool
	ModelName      string
	Refused        bool
	WebSearched    bool

	svc     *ChatService
	userID  uint
	content string
	stream  ai.Stream
}

// PrepareReply validates the turn, persists the user message, and opens
// the response stream. It fails before any side effect when the model name
// is unknown.
func (s *ChatService) PrepareReply(ctx context.Context, req ChatRequest) (*Reply, error) {
	if req.UserID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	var (
		session *model.Session
		created bool
		err     error
	)
	if req.SessionID == 0 {
		session, err = s.CreateSession(CreateSessionInput{UserID: req.UserID, Title: sessionTitle(content)})
		if err != nil {
			return nil, err
		}
		created = true
	} else {
		session, err = s.GetSession(req.UserID, req.SessionID)
		if err != nil {
			return nil, err
		}
	}

	history, err := s.buildHistory(session.ID)
	if err != nil {
		return nil, err
	}

	outcome, err := s.responder.Respond(ctx, rag.Request{
		Prompt:       content,
		SessionID:    sessionKey(session.ID),
		HasDocuments: session.HasDocuments,
		History:      history,
		Model:        req.Model,
		UseWebSearch: req.UseWebSearch,
	})
	if err != nil {
		return nil, err
	}

	if s.publisher == nil {
		outcome.Stream.Close()
		return nil, ErrMessageEnqueue
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, session.ID)
		_ = s.historyCache.DeleteHistory(ctx, session.ID)
	}
	userMessage := model.Message{
		SessionID: session.ID,
		UserID:    req.UserID,
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, userMessage); err != nil {
		outcome.Stream.Close()
		return nil, ErrMessageEnqueue
	}

	if s.usage != nil {
		s.usage.RecordMessage(req.UserID, outcome.ModelName)
		if outcome.WebSearched {
			s.usage.RecordWebSearch(req.UserID)
		}
	}

	return &Reply{
		SessionID:      session.ID,
		SessionCreated: created,
		ModelName:      outcome.ModelName,
		Refused:        outcome.Refused,
		WebSearched:    outcome.WebSearched,
		svc:            s,
		userID:         req.UserID,
		content:        content,
		stream:         outcome.Stream,
	}, nil
}

// Drain consumes the stream, forwarding each fragment to onChunk, and
// persists the assistant turn once the stream is exhausted. A failing
// onChunk (client gone) stops forwarding but the stream is still drained
// so the full answer lands in storage.
func (r *Reply) Drain(ctx context.Context, onChunk func(string) error) error {
	defer r.stream.Close()

	var sb strings.Builder
	var sendErr error
	for {
		fragment, err := r.stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		sb.WriteString(fragment)
		if sendErr == nil && onChunk != nil {
			if err := onChunk(fragment); err != nil {
				sendErr = err
			}
		}
	}

	full := strings.TrimSpace(sb.String())
	if full == "" {
		full = "The model returned an empty response."
	}
	assistantMessage := model.Message{
		SessionID: r.SessionID,
		UserID:    r.userID,
		Role:      "assistant",
		Content:   full,
		CreatedAt: time.Now(),
	}
	// persistence must not be cancelled along with the client connection
	if err := r.svc.publisher.Publish(context.Background(), assistantMessage); err != nil {
		return ErrMessageEnqueue
	}
	return sendErr
}

func (s *ChatService) buildHistory(sessionID uint) ([]ai.ChatMessage, error) {
	recent, err := s.messageRepo.ListRecentBySessionID(sessionID, s.maxContext)
	if err != nil {
		return nil, err
	}
	history := make([]ai.ChatMessage, 0, len(recent))
	for _, item := range recent {
		role := item.Role
		if role == "" {
			role = "user"
		}
		history = append(history, ai.ChatMessage{Role: role, Content: item.Content})
	}
	return history, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

func sessionKey(sessionID uint) string {
	return strconv.FormatUint(uint64(sessionID), 10)
}

func sessionTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= 40 {
		return content
	}
	return string(runes[:40]) + "…"
}
