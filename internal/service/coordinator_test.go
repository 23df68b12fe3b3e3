package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
	"github.com/autoreply/wa-autoreply-bridge/internal/biz/usecase"
)

// Mock implementations

type sentMessage struct {
	ChatID   string
	Text     string
	QuotedID string
	MsgID    string
}

type mockMessageRepo struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	typing  []bool
	sendErr error

	// onSend runs before SendText returns, as when the transport echo wins the race
	onSend func(chatID, msgID string)
}

func (m *mockMessageRepo) NewMessageID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("3EB0SENT%d", m.nextID)
}

func (m *mockMessageRepo) SendText(ctx context.Context, chatID, msgID, text, quotedID string) error {
	m.mu.Lock()
	if m.sendErr != nil {
		m.mu.Unlock()
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text, QuotedID: quotedID, MsgID: msgID})
	onSend := m.onSend
	m.mu.Unlock()

	if onSend != nil {
		onSend(chatID, msgID)
	}
	return nil
}

func (m *mockMessageRepo) SetTyping(ctx context.Context, chatID string, typing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing = append(m.typing, typing)
	return nil
}

func (m *mockMessageRepo) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

type completionCall struct {
	Text   string
	Sender string
}

type mockCompletionRepo struct {
	mu    sync.Mutex
	calls []completionCall
	reply string
	err   error
}

func (m *mockCompletionRepo) Complete(ctx context.Context, userText, senderLabel string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, completionCall{Text: userText, Sender: senderLabel})
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockCompletionRepo) Calls() []completionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]completionCall(nil), m.calls...)
}

type mockJournalRepo struct {
	mu     sync.Mutex
	events []*domain.ReplyEvent
}

func (m *mockJournalRepo) Record(ctx context.Context, event *domain.ReplyEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockJournalRepo) Recent(ctx context.Context, limit int) ([]*domain.ReplyEvent, error) {
	return m.events, nil
}

func (m *mockJournalRepo) Close() error {
	return nil
}

func (m *mockJournalRepo) Outcomes() []domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Outcome
	for _, e := range m.events {
		result = append(result, e.Outcome)
	}
	return result
}

// Helpers

var start = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clock      *usecase.ManualClock
	messages   *mockMessageRepo
	completion *mockCompletionRepo
	journal    *mockJournalRepo
	coord      *ReplyCoordinator
}

func newFixture() *fixture {
	f := &fixture{
		clock:      usecase.NewManualClock(start),
		messages:   &mockMessageRepo{},
		completion: &mockCompletionRepo{reply: "🤖: Hello Alice!"},
		journal:    &mockJournalRepo{},
	}
	f.coord = newReplyCoordinator(f.messages, f.completion, f.journal, nil,
		domain.DefaultReplyConfig(), zerolog.Nop(), f.clock)
	return f
}

func (f *fixture) inbound(chatID, msgID, text string) *domain.InboundMessage {
	return &domain.InboundMessage{
		ID:        msgID,
		ChatID:    chatID,
		PushName:  "Alice",
		Timestamp: f.clock.Now(),
		Content:   domain.PlainText{Text: text},
	}
}

func (f *fixture) manual(chatID, msgID string) *domain.InboundMessage {
	return &domain.InboundMessage{
		ID:        msgID,
		ChatID:    chatID,
		FromMe:    true,
		Timestamp: f.clock.Now(),
		Content:   domain.PlainText{Text: "hey"},
	}
}

// Tests

func TestHandleInbound_RepliesAfterDelay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	got := f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	if got != domain.DispositionPending {
		t.Fatalf("Expected pending, got %s", got)
	}

	f.clock.Advance(4 * time.Second)
	if len(f.completion.Calls()) != 0 {
		t.Fatal("Expected no completion call before the delay")
	}

	f.clock.Advance(500 * time.Millisecond)

	calls := f.completion.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 completion call, got %d", len(calls))
	}
	if calls[0].Text != "hi" || calls[0].Sender != "Alice" {
		t.Errorf("Expected (hi, Alice), got (%s, %s)", calls[0].Text, calls[0].Sender)
	}

	sent := f.messages.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 send, got %d", len(sent))
	}
	if sent[0].Text != "🤖: Hello Alice!" || sent[0].QuotedID != "m1" || sent[0].ChatID != "A" {
		t.Errorf("Unexpected send: %+v", sent[0])
	}

	if len(f.coord.Pending()) != 0 {
		t.Error("Expected candidate to be removed after evaluation")
	}
	if outcomes := f.journal.Outcomes(); len(outcomes) != 1 || outcomes[0] != domain.OutcomeReplied {
		t.Errorf("Expected [replied], got %v", outcomes)
	}
}

func TestHandleInbound_ManualReplyPreempts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(1000 * time.Millisecond)

	if got := f.coord.HandleInbound(ctx, f.manual("A", "op1")); got != domain.DispositionManual {
		t.Fatalf("Expected manual, got %s", got)
	}

	f.clock.Advance(10 * time.Second)

	if len(f.completion.Calls()) != 0 {
		t.Errorf("Expected zero completion calls, got %d", len(f.completion.Calls()))
	}
	if len(f.messages.Sent()) != 0 {
		t.Errorf("Expected zero automated sends, got %d", len(f.messages.Sent()))
	}
	if f.clock.PendingTimers() != 0 {
		t.Errorf("Expected canceled timer to be stopped, got %d pending", f.clock.PendingTimers())
	}
	if outcomes := f.journal.Outcomes(); len(outcomes) != 1 || outcomes[0] != domain.OutcomeCanceled {
		t.Errorf("Expected [canceled], got %v", outcomes)
	}
}

func TestHandleInbound_ManualReplyCancelsEveryCandidateOfChat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(time.Second)
	f.coord.HandleInbound(ctx, f.inbound("A", "m2", "are you there?"))
	f.coord.HandleInbound(ctx, f.inbound("B", "m3", "hello"))

	f.coord.HandleInbound(ctx, f.manual("A", "op1"))
	f.clock.Advance(10 * time.Second)

	calls := f.completion.Calls()
	if len(calls) != 1 || calls[0].Text != "hello" {
		t.Errorf("Expected only chat B to be answered, got %+v", calls)
	}
}

func TestEvaluate_ManualMarkAfterEnqueueSuppresses(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(time.Second)

	// Mark without cancellation, as when the manual event races the timer
	f.coord.activity.RecordManual("A", f.clock.Now())
	f.clock.Advance(4 * time.Second)

	if len(f.completion.Calls()) != 0 {
		t.Errorf("Expected suppression, got %d completion calls", len(f.completion.Calls()))
	}
	if len(f.coord.Pending()) != 0 {
		t.Error("Expected suppressed candidate to be removed")
	}
	if outcomes := f.journal.Outcomes(); len(outcomes) != 1 || outcomes[0] != domain.OutcomeSuppressed {
		t.Errorf("Expected [suppressed], got %v", outcomes)
	}
}

func TestHandleInbound_EarlierManualReplyDoesNotPreempt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.manual("A", "op1"))
	f.clock.Advance(time.Second)

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(4500 * time.Millisecond)

	if len(f.completion.Calls()) != 1 {
		t.Errorf("Expected 1 completion call, got %d", len(f.completion.Calls()))
	}
	if len(f.messages.Sent()) != 1 {
		t.Errorf("Expected 1 send, got %d", len(f.messages.Sent()))
	}
}

func TestHandleInbound_MuteCommand(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	got := f.coord.HandleInbound(ctx, f.inbound("A", "m1", "#STOP now"))
	if got != domain.DispositionCommand {
		t.Fatalf("Expected command, got %s", got)
	}

	sent := f.messages.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected exactly 1 acknowledgement, got %d", len(sent))
	}
	if sent[0].Text != "🤖 Auto-reply paused for 1 hour." {
		t.Errorf("Unexpected acknowledgement: %s", sent[0].Text)
	}
	if sent[0].QuotedID != "m1" {
		t.Errorf("Expected acknowledgement to quote m1, got %s", sent[0].QuotedID)
	}
	if len(f.coord.Pending()) != 0 || f.clock.PendingTimers() != 0 {
		t.Error("Expected command not to be enqueued")
	}
	if len(f.coord.Mutes()) != 1 {
		t.Errorf("Expected 1 mute window, got %d", len(f.coord.Mutes()))
	}

	f.clock.Advance(10 * time.Second)
	if got := f.coord.HandleInbound(ctx, f.inbound("A", "m2", "hello?")); got != domain.DispositionMuted {
		t.Errorf("Expected muted, got %s", got)
	}
	f.clock.Advance(10 * time.Second)

	if len(f.completion.Calls()) != 0 {
		t.Errorf("Expected no completion calls, got %d", len(f.completion.Calls()))
	}
	if len(f.messages.Sent()) != 1 {
		t.Errorf("Expected only the acknowledgement, got %d sends", len(f.messages.Sent()))
	}
}

func TestHandleInbound_MuteExpires(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "#stop"))
	f.clock.Advance(time.Hour)

	if got := f.coord.HandleInbound(ctx, f.inbound("A", "m2", "hi")); got != domain.DispositionPending {
		t.Errorf("Expected pending after mute expiry, got %s", got)
	}
}

func TestHandleInbound_Discards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stale := f.inbound("A", "old", "hi")
	stale.Timestamp = start.Add(-time.Minute)
	if got := f.coord.HandleInbound(ctx, stale); got != domain.DispositionStale {
		t.Errorf("Expected stale, got %s", got)
	}

	if got := f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi")); got != domain.DispositionPending {
		t.Errorf("Expected pending, got %s", got)
	}
	if got := f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi")); got != domain.DispositionDeduplicated {
		t.Errorf("Expected deduplicated, got %s", got)
	}

	image := f.inbound("A", "img", "")
	image.Content = domain.ImageCaption{}
	if got := f.coord.HandleInbound(ctx, image); got != domain.DispositionNoText {
		t.Errorf("Expected no_text, got %s", got)
	}

	empty := f.inbound("A", "nil", "")
	empty.Content = nil
	if got := f.coord.HandleInbound(ctx, empty); got != domain.DispositionNoText {
		t.Errorf("Expected no_text, got %s", got)
	}
}

func TestHandleInbound_CompletionFailureSendsFallback(t *testing.T) {
	f := newFixture()
	f.completion.err = errors.New("quota exceeded")
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(5 * time.Second)

	sent := f.messages.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 send, got %d", len(sent))
	}
	if sent[0].Text != domain.FallbackReplyText {
		t.Errorf("Expected fallback text, got %s", sent[0].Text)
	}
	if outcomes := f.journal.Outcomes(); len(outcomes) != 1 || outcomes[0] != domain.OutcomeFallback {
		t.Errorf("Expected [fallback], got %v", outcomes)
	}
}

func TestHandleInbound_SendFailureStillRemovesCandidate(t *testing.T) {
	f := newFixture()
	f.messages.sendErr = errors.New("socket closed")
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(5 * time.Second)

	if len(f.coord.Pending()) != 0 {
		t.Error("Expected candidate to be removed after a failed send")
	}
}

func TestHandleInbound_BotEchoIsNotManualActivity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(5 * time.Second)
	reply := f.messages.Sent()[0]

	f.coord.HandleInbound(ctx, f.inbound("A", "m2", "thanks"))
	f.clock.Advance(time.Second)

	echo := f.manual("A", reply.MsgID)
	if got := f.coord.HandleInbound(ctx, echo); got != domain.DispositionBotEcho {
		t.Fatalf("Expected bot_echo, got %s", got)
	}
	if _, ok := f.coord.activity.LastManualAt("A"); ok {
		t.Error("Expected no manual mark from a bot echo")
	}

	f.clock.Advance(5 * time.Second)
	if len(f.completion.Calls()) != 2 {
		t.Errorf("Expected the second candidate to be answered, got %d calls", len(f.completion.Calls()))
	}
}

func TestOperatorMuteAndUnmute(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	w := f.coord.Mute("A", 0)
	if !w.ExpiresAt.Equal(start.Add(time.Hour)) {
		t.Errorf("Expected configured duration, got expiry %v", w.ExpiresAt)
	}
	if got := f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi")); got != domain.DispositionMuted {
		t.Errorf("Expected muted, got %s", got)
	}

	if !f.coord.Unmute("A") {
		t.Error("Expected Unmute to succeed")
	}
	if f.coord.Unmute("A") {
		t.Error("Expected second Unmute to fail")
	}
	if got := f.coord.HandleInbound(ctx, f.inbound("A", "m2", "hi")); got != domain.DispositionPending {
		t.Errorf("Expected pending, got %s", got)
	}
}

func TestClose_DropsPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.coord.Close()
	f.clock.Advance(5 * time.Second)

	if len(f.completion.Calls()) != 0 {
		t.Errorf("Expected no completion after Close, got %d", len(f.completion.Calls()))
	}
}

func TestHandleInbound_StaleComparesWholeSeconds(t *testing.T) {
	clock := usecase.NewManualClock(start.Add(700 * time.Millisecond))
	coord := newReplyCoordinator(&mockMessageRepo{}, &mockCompletionRepo{}, nil, nil,
		domain.DefaultReplyConfig(), zerolog.Nop(), clock)

	msg := &domain.InboundMessage{
		ID:        "m1",
		ChatID:    "A",
		Timestamp: start,
		Content:   domain.PlainText{Text: "hi"},
	}
	if got := coord.HandleInbound(context.Background(), msg); got != domain.DispositionPending {
		t.Errorf("Expected message in the startup second to be accepted, got %s", got)
	}
}

func TestHandleOutbound_RecordsManualActivity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(2 * time.Second)

	if got := f.coord.HandleOutbound(ctx, f.manual("A", "op1")); got != domain.DispositionManual {
		t.Fatalf("Expected manual, got %s", got)
	}

	last, ok := f.coord.activity.LastManualAt("A")
	if !ok || !last.Equal(start.Add(2*time.Second)) {
		t.Errorf("Expected manual mark at +2s, got %v (%v)", last, ok)
	}
	if len(f.coord.Pending()) != 0 {
		t.Error("Expected pending candidates of chat A to be canceled")
	}
}

func TestHandleInbound_EchoBeforeSendReturnsIsNotManualActivity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var echoes []domain.Disposition
	f.messages.onSend = func(chatID, msgID string) {
		echoes = append(echoes, f.coord.HandleInbound(ctx, f.manual(chatID, msgID)))
	}

	f.coord.HandleInbound(ctx, f.inbound("A", "m1", "hi"))
	f.clock.Advance(time.Second)
	f.coord.HandleInbound(ctx, f.inbound("A", "m2", "still there?"))

	f.clock.Advance(3500 * time.Millisecond)
	f.clock.Advance(time.Second)

	if len(f.completion.Calls()) != 2 {
		t.Errorf("Expected 2 completion calls, got %d", len(f.completion.Calls()))
	}
	sent := f.messages.Sent()
	if len(sent) != 2 || sent[0].QuotedID != "m1" || sent[1].QuotedID != "m2" {
		t.Errorf("Expected replies quoting m1 then m2, got %+v", sent)
	}
	for i, d := range echoes {
		if d != domain.DispositionBotEcho {
			t.Errorf("Expected echo %d to be bot_echo, got %s", i, d)
		}
	}
	if _, ok := f.coord.activity.LastManualAt("A"); ok {
		t.Error("Expected no manual mark from bot echoes")
	}
}

func TestHandleOutbound_OperatorIDsAreNotRemembered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.coord.HandleOutbound(ctx, f.manual("A", "op1"))
	if f.coord.sent.Len() != 0 {
		t.Errorf("Expected operator ids to stay out of the sent cache, got %d", f.coord.sent.Len())
	}

	// A repeated operator id is still manual activity
	if got := f.coord.HandleOutbound(ctx, f.manual("A", "op1")); got != domain.DispositionManual {
		t.Errorf("Expected manual, got %s", got)
	}
}
