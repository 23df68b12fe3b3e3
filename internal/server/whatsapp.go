package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
	"github.com/autoreply/wa-autoreply-bridge/internal/infra/whatsapp"
	"github.com/autoreply/wa-autoreply-bridge/internal/service"
)

// MessageHandler consumes message events decoded from the bridge
type MessageHandler interface {
	HandleInbound(ctx context.Context, msg *domain.InboundMessage) domain.Disposition
}

// WhatsAppServer feeds bridge events into the reply coordinator
type WhatsAppServer struct {
	client    *whatsapp.Client
	handler   MessageHandler
	keepAlive *service.KeepAliveJob // optional
	log       zerolog.Logger

	ctx context.Context
}

// NewWhatsAppServer creates a new WhatsApp server
func NewWhatsAppServer(
	client *whatsapp.Client,
	handler MessageHandler,
	keepAlive *service.KeepAliveJob,
	logger zerolog.Logger,
) *WhatsAppServer {
	return &WhatsAppServer{
		client:    client,
		handler:   handler,
		keepAlive: keepAlive,
		log:       logger.With().Str("component", "server").Logger(),
		ctx:       context.Background(),
	}
}

// Start connects to the bridge and starts background jobs
func (s *WhatsAppServer) Start(ctx context.Context) error {
	s.ctx = ctx

	if s.keepAlive != nil {
		s.keepAlive.Start(ctx)
	}

	s.client.OnEvent(s.handleEvent)
	return s.client.Start(ctx)
}

// Stop stops the bridge client and background jobs
func (s *WhatsAppServer) Stop() {
	if s.keepAlive != nil {
		s.keepAlive.Stop()
	}
	s.client.Stop()
}

func (s *WhatsAppServer) handleEvent(evt *whatsapp.Event) {
	if evt.Type != whatsapp.FrameMessage || evt.Message == nil {
		return
	}

	msg := toInboundMessage(evt.Message)
	disposition := s.handler.HandleInbound(s.ctx, msg)

	s.log.Debug().
		Str("chat_id", msg.ChatID).
		Str("msg_id", msg.ID).
		Bool("from_me", msg.FromMe).
		Str("disposition", string(disposition)).
		Msg("message handled")
}

// toInboundMessage converts a bridge frame into a domain message
func toInboundMessage(f *whatsapp.MessageFrame) *domain.InboundMessage {
	msg := &domain.InboundMessage{
		ID:       f.ID,
		ChatID:   f.Chat,
		FromMe:   f.FromMe,
		PushName: f.PushName,
		Content:  toContent(&f.Content),
	}
	if f.Timestamp > 0 {
		msg.Timestamp = time.Unix(f.Timestamp, 0)
	}
	return msg
}

// toContent picks the first variant carrying text, in WhatsApp's precedence.
// Media without a caption falls through to the next kind.
func toContent(c *whatsapp.MessageContent) domain.Content {
	switch {
	case c.Conversation != "":
		return domain.PlainText{Text: c.Conversation}
	case c.ExtendedTextMessage != nil:
		return domain.ExtendedText{Text: c.ExtendedTextMessage.Text}
	case c.ImageMessage != nil && c.ImageMessage.Caption != "":
		return domain.ImageCaption{Caption: c.ImageMessage.Caption}
	case c.VideoMessage != nil && c.VideoMessage.Caption != "":
		return domain.VideoCaption{Caption: c.VideoMessage.Caption}
	case c.ButtonsResponseMessage != nil:
		return domain.ButtonReply{SelectedID: c.ButtonsResponseMessage.SelectedButtonID}
	case c.ListResponseMessage != nil:
		return domain.ListReply{Title: c.ListResponseMessage.Title}
	default:
		return nil
	}
}
