// Package chat owns conversation turns end to end: session state, engine
// dispatch, transcripts, notification hand-off, and delayed follow-ups.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medreferral/medbot/internal/engine"
	"github.com/medreferral/medbot/internal/notify"
	"github.com/medreferral/medbot/internal/observability/metrics"
	"github.com/medreferral/medbot/internal/session"
	"github.com/medreferral/medbot/internal/transcript"
	"github.com/medreferral/medbot/pkg/logging"
)

// Notifier queues a fire-and-forget email job.
type Notifier interface {
	Enqueue(ctx context.Context, req *notify.Request) error
}

// Pusher delivers delayed message batches to a live conversation.
type Pusher interface {
	Send(conversationID string, messages []string, options []string)
}

// Service processes one utterance at a time per conversation.
type Service struct {
	engine      *engine.Engine
	sessions    session.Store
	transcripts *transcript.Store
	notifier    Notifier
	pusher      Pusher
	metrics     *metrics.ChatMetrics
	logger      *logging.Logger
	newConvID   func() string
}

// NewService wires the turn pipeline. transcripts, notifier, pusher, and
// chatMetrics may be nil; the corresponding step is skipped.
func NewService(
	eng *engine.Engine,
	sessions session.Store,
	transcripts *transcript.Store,
	notifier Notifier,
	pusher Pusher,
	chatMetrics *metrics.ChatMetrics,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		engine:      eng,
		sessions:    sessions,
		transcripts: transcripts,
		notifier:    notifier,
		pusher:      pusher,
		metrics:     chatMetrics,
		logger:      logger.Component("chat"),
		newConvID:   uuid.NewString,
	}
}

// StartConversation opens a fresh conversation and returns its id with the
// greeting.
func (s *Service) StartConversation(ctx context.Context) (string, *engine.Reply, error) {
	conversationID := s.newConvID()
	reply := engine.Greeting()

	if _, err := s.transcripts.EnsureConversation(ctx, conversationID); err != nil {
		s.logger.Warn("failed to open transcript", "conversation_id", conversationID, "error", err)
	}
	s.recordBotMessages(ctx, conversationID, reply.Messages)

	return conversationID, reply, nil
}

// ProcessMessage runs one turn: load session, dispatch, persist state,
// record the transcript, queue any notification, schedule the follow-up.
func (s *Service) ProcessMessage(ctx context.Context, conversationID, text string) (*engine.Reply, error) {
	started := time.Now()

	state, err := s.sessions.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	reply, err := s.engine.Respond(ctx, state, text)
	if err != nil {
		return nil, err
	}

	if state.IsEmpty() {
		err = s.sessions.Clear(ctx, conversationID)
	} else {
		err = s.sessions.Save(ctx, conversationID, state)
	}
	if err != nil {
		return nil, err
	}

	if err := s.transcripts.AppendMessage(ctx, conversationID, transcript.RoleUser, text); err != nil {
		s.logger.Warn("failed to record user message", "conversation_id", conversationID, "error", err)
	}
	s.recordBotMessages(ctx, conversationID, reply.Messages)

	if reply.Notification != nil && s.notifier != nil {
		req := *reply.Notification
		req.ConversationID = conversationID
		if err := s.notifier.Enqueue(ctx, &req); err != nil {
			// wording-only downgrade: the turn already succeeded
			s.logger.Error("failed to enqueue notification",
				"conversation_id", conversationID,
				"kind", string(req.Kind),
				"error", err,
			)
		}
	}

	if reply.FollowUp != nil {
		s.scheduleFollowUp(conversationID, reply.FollowUp)
	}

	s.metrics.ObserveTurn(reply.Rule, time.Since(started).Seconds())
	return reply, nil
}

// History returns the stored transcript for a conversation.
func (s *Service) History(ctx context.Context, conversationID string, limit int) ([]transcript.MessageRecord, error) {
	return s.transcripts.History(ctx, conversationID, limit)
}

func (s *Service) recordBotMessages(ctx context.Context, conversationID string, messages []string) {
	for _, msg := range messages {
		if err := s.transcripts.AppendMessage(ctx, conversationID, transcript.RoleBot, msg); err != nil {
			s.logger.Warn("failed to record bot message", "conversation_id", conversationID, "error", err)
			return
		}
	}
}

// scheduleFollowUp pushes the delayed batch to connected clients. HTTP
// clients also receive the follow-up inline in the turn response and
// render it themselves.
func (s *Service) scheduleFollowUp(conversationID string, followUp *engine.FollowUp) {
	if s.pusher == nil {
		return
	}
	messages := append([]string(nil), followUp.Messages...)
	options := append([]string(nil), followUp.Options...)
	time.AfterFunc(followUp.Delay, func() {
		s.pusher.Send(conversationID, messages, options)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.recordBotMessages(ctx, conversationID, messages)
	})
}
