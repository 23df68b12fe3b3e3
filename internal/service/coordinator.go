package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
	"github.com/autoreply/wa-autoreply-bridge/internal/biz/repo"
	"github.com/autoreply/wa-autoreply-bridge/internal/biz/usecase"
	"github.com/autoreply/wa-autoreply-bridge/internal/metrics"
)

// ReplyCoordinator decides, per inbound message, whether an automated reply
// is eventually sent, and preempts pending replies when the operator answers
// by hand.
type ReplyCoordinator struct {
	messageRepo    repo.MessageRepo
	completionRepo repo.CompletionRepo
	journal        repo.JournalRepo
	cfg            domain.ReplyConfig
	clock          usecase.Clock
	log            zerolog.Logger

	seen     repo.SeenRepo
	sent     *usecase.SeenMessageCache // ids of messages sent by the coordinator
	mutes    *usecase.MuteRegistry
	activity *usecase.ManualActivityTracker
	pending  *usecase.PendingReplyScheduler

	startedAt time.Time
	baseCtx   context.Context
	cancel    context.CancelFunc
}

// NewReplyCoordinator creates a coordinator. A nil seen repo selects the
// in-memory cache, a nil journal disables journaling.
func NewReplyCoordinator(
	messageRepo repo.MessageRepo,
	completionRepo repo.CompletionRepo,
	journal repo.JournalRepo,
	seen repo.SeenRepo,
	cfg domain.ReplyConfig,
	logger zerolog.Logger,
) *ReplyCoordinator {
	return newReplyCoordinator(messageRepo, completionRepo, journal, seen, cfg, logger, usecase.SystemClock())
}

func newReplyCoordinator(
	messageRepo repo.MessageRepo,
	completionRepo repo.CompletionRepo,
	journal repo.JournalRepo,
	seen repo.SeenRepo,
	cfg domain.ReplyConfig,
	logger zerolog.Logger,
	clock usecase.Clock,
) *ReplyCoordinator {
	if cfg.FallbackText == "" {
		cfg.FallbackText = domain.FallbackReplyText
	}
	if cfg.MuteToken == "" {
		cfg.MuteToken = domain.DefaultReplyConfig().MuteToken
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = domain.DefaultReplyConfig().CompletionTimeout
	}
	if seen == nil {
		seen = usecase.NewSeenMessageCache(cfg.SeenRetention, clock)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ReplyCoordinator{
		messageRepo:    messageRepo,
		completionRepo: completionRepo,
		journal:        journal,
		cfg:            cfg,
		clock:          clock,
		log:            logger.With().Str("component", "coordinator").Logger(),
		seen:           seen,
		sent:           usecase.NewSeenMessageCache(cfg.SeenRetention, clock),
		mutes:          usecase.NewMuteRegistry(clock),
		activity:       usecase.NewManualActivityTracker(),
		pending:        usecase.NewPendingReplyScheduler(cfg.ReplyDelay, clock),
		startedAt:      clock.Now(),
		baseCtx:        ctx,
		cancel:         cancel,
	}
}

// HandleInbound runs one message event through the reply pipeline
func (c *ReplyCoordinator) HandleInbound(ctx context.Context, msg *domain.InboundMessage) domain.Disposition {
	disposition := c.handle(ctx, msg)
	metrics.InboundTotal.WithLabelValues(string(disposition)).Inc()
	return disposition
}

func (c *ReplyCoordinator) handle(ctx context.Context, msg *domain.InboundMessage) domain.Disposition {
	if msg.FromMe {
		return c.handleOutbound(ctx, msg)
	}

	// 1. Backlog replayed on reconnect
	if !msg.Timestamp.IsZero() && msg.IsBefore(c.startedAt) {
		c.log.Debug().Str("msg_id", msg.ID).Msg("skipping message from before startup")
		return domain.DispositionStale
	}

	// 2. Dedup
	if c.seen.IsSeen(ctx, msg.ID) {
		c.log.Debug().Str("msg_id", msg.ID).Msg("already seen")
		return domain.DispositionDeduplicated
	}

	// 3. Text
	text, ok := msg.Text()
	if !ok {
		return domain.DispositionNoText
	}
	sender := msg.SenderLabel()
	c.log.Info().Str("chat_id", msg.ChatID).Str("sender", sender).Str("text", text).Msg("message received")

	// 4. Mute command
	if strings.Contains(strings.ToLower(text), strings.ToLower(c.cfg.MuteToken)) {
		c.muteByCommand(ctx, msg, sender)
		return domain.DispositionCommand
	}

	// 5. Muted chat
	if c.mutes.IsMuted(msg.ChatID, c.clock.Now()) {
		c.log.Debug().Str("chat_id", msg.ChatID).Msg("chat muted, skipping")
		c.record(ctx, msg.ChatID, msg.ID, sender, domain.OutcomeMuted, "")
		return domain.DispositionMuted
	}

	// 6. Candidate
	cand := domain.PendingCandidate{
		MessageID:   msg.ID,
		ChatID:      msg.ChatID,
		EnqueuedAt:  c.clock.Now(),
		SourceText:  text,
		SenderLabel: sender,
	}
	if !c.pending.Schedule(cand, c.evaluate) {
		return domain.DispositionDeduplicated
	}
	metrics.PendingCandidates.Set(float64(c.pending.Len()))

	if err := c.messageRepo.SetTyping(ctx, msg.ChatID, true); err != nil {
		c.log.Warn().Err(err).Str("chat_id", msg.ChatID).Msg("failed to start typing")
	}
	return domain.DispositionPending
}

// HandleOutbound treats an operator-authored message as manual activity
// and cancels every candidate still queued for the chat.
func (c *ReplyCoordinator) HandleOutbound(ctx context.Context, msg *domain.InboundMessage) domain.Disposition {
	disposition := c.handleOutbound(ctx, msg)
	metrics.InboundTotal.WithLabelValues(string(disposition)).Inc()
	return disposition
}

func (c *ReplyCoordinator) handleOutbound(ctx context.Context, msg *domain.InboundMessage) domain.Disposition {
	if c.sent.Contains(msg.ID) {
		return domain.DispositionBotEcho
	}

	c.activity.RecordManual(msg.ChatID, c.clock.Now())

	canceled := c.pending.CancelAll(msg.ChatID)
	if len(canceled) == 0 {
		return domain.DispositionManual
	}
	metrics.PendingCandidates.Set(float64(c.pending.Len()))

	for _, cand := range canceled {
		c.log.Info().Str("chat_id", cand.ChatID).Str("msg_id", cand.MessageID).Msg("manual reply, pending reply canceled")
		c.record(ctx, cand.ChatID, cand.MessageID, cand.SenderLabel, domain.OutcomeCanceled, "")
	}
	if err := c.messageRepo.SetTyping(ctx, msg.ChatID, false); err != nil {
		c.log.Warn().Err(err).Str("chat_id", msg.ChatID).Msg("failed to stop typing")
	}
	return domain.DispositionManual
}

func (c *ReplyCoordinator) muteByCommand(ctx context.Context, msg *domain.InboundMessage, sender string) {
	expiresAt := c.mutes.Mute(msg.ChatID, c.cfg.MuteDuration)
	c.log.Info().Str("chat_id", msg.ChatID).Time("until", expiresAt).Msg("auto-reply muted by command")

	c.send(ctx, msg.ChatID, c.cfg.AckText(), msg.ID)
	c.record(ctx, msg.ChatID, msg.ID, sender, domain.OutcomeCommand, expiresAt.Format(time.RFC3339))
}

// evaluate runs once per candidate when its delay elapses
func (c *ReplyCoordinator) evaluate(cand domain.PendingCandidate) {
	ctx := c.baseCtx

	if _, ok := c.pending.Lookup(cand.ChatID, cand.MessageID); !ok {
		return
	}

	if last, ok := c.activity.LastManualAt(cand.ChatID); ok && last.After(cand.EnqueuedAt) {
		c.log.Info().Str("chat_id", cand.ChatID).Str("msg_id", cand.MessageID).Msg("manual reply came in time, skipping")
		c.finish(ctx, cand)
		c.record(ctx, cand.ChatID, cand.MessageID, cand.SenderLabel, domain.OutcomeSuppressed, "")
		return
	}

	completionCtx, cancel := context.WithTimeout(ctx, c.cfg.CompletionTimeout)
	start := time.Now()
	reply, err := c.completionRepo.Complete(completionCtx, cand.SourceText, cand.SenderLabel)
	cancel()
	metrics.CompletionSeconds.Observe(time.Since(start).Seconds())

	outcome, detail := domain.OutcomeReplied, ""
	if err != nil {
		c.log.Error().Err(err).Str("chat_id", cand.ChatID).Msg("completion failed")
		reply = c.cfg.FallbackText
		outcome, detail = domain.OutcomeFallback, err.Error()
	}

	if c.send(ctx, cand.ChatID, reply, cand.MessageID) {
		c.log.Info().Str("chat_id", cand.ChatID).Str("sender", cand.SenderLabel).Str("reply", reply).Msg("replied")
	}
	c.finish(ctx, cand)
	c.record(ctx, cand.ChatID, cand.MessageID, cand.SenderLabel, outcome, detail)
}

// finish removes the candidate and stops the typing indicator
func (c *ReplyCoordinator) finish(ctx context.Context, cand domain.PendingCandidate) {
	c.pending.Remove(cand.ChatID, cand.MessageID)
	metrics.PendingCandidates.Set(float64(c.pending.Len()))

	if err := c.messageRepo.SetTyping(ctx, cand.ChatID, false); err != nil {
		c.log.Warn().Err(err).Str("chat_id", cand.ChatID).Msg("failed to stop typing")
	}
}

// send delivers text. The id is registered before the write so the echo
// is never taken for manual activity, however early it arrives.
func (c *ReplyCoordinator) send(ctx context.Context, chatID, text, quotedID string) bool {
	msgID := c.messageRepo.NewMessageID()
	c.sent.Add(msgID)

	if err := c.messageRepo.SendText(ctx, chatID, msgID, text, quotedID); err != nil {
		metrics.SendErrors.Inc()
		c.log.Error().Err(err).Str("chat_id", chatID).Msg("send failed")
		return false
	}
	return true
}

func (c *ReplyCoordinator) record(ctx context.Context, chatID, msgID, sender string, outcome domain.Outcome, detail string) {
	metrics.OutcomesTotal.WithLabelValues(string(outcome)).Inc()
	if c.journal == nil {
		return
	}

	event := &domain.ReplyEvent{
		ChatID:    chatID,
		MsgID:     msgID,
		Sender:    sender,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: c.clock.Now(),
	}
	if err := c.journal.Record(ctx, event); err != nil {
		c.log.Warn().Err(err).Msg("failed to record journal event")
	}
}

// Pending returns the queued candidates, oldest first
func (c *ReplyCoordinator) Pending() []domain.PendingCandidate {
	return c.pending.Pending()
}

// Mutes returns the active mute windows
func (c *ReplyCoordinator) Mutes() []domain.MuteWindow {
	return c.mutes.Active(c.clock.Now())
}

// Mute pauses automated replies for chatID. d <= 0 uses the configured duration.
func (c *ReplyCoordinator) Mute(chatID string, d time.Duration) domain.MuteWindow {
	if d <= 0 {
		d = c.cfg.MuteDuration
	}
	expiresAt := c.mutes.Mute(chatID, d)
	c.log.Info().Str("chat_id", chatID).Time("until", expiresAt).Msg("auto-reply muted by operator")
	return domain.MuteWindow{ChatID: chatID, ExpiresAt: expiresAt}
}

// Unmute resumes automated replies for chatID
func (c *ReplyCoordinator) Unmute(chatID string) bool {
	ok := c.mutes.Unmute(chatID)
	if ok {
		c.log.Info().Str("chat_id", chatID).Msg("auto-reply resumed by operator")
	}
	return ok
}

// StartedAt returns when the coordinator started accepting messages
func (c *ReplyCoordinator) StartedAt() time.Time {
	return c.startedAt
}

// Close drops every queued candidate and aborts in-flight completions
func (c *ReplyCoordinator) Close() {
	for _, cand := range c.pending.Pending() {
		c.pending.Remove(cand.ChatID, cand.MessageID)
	}
	metrics.PendingCandidates.Set(0)
	c.cancel()
}
