package data

import (
	"context"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/repo"
	"github.com/autoreply/wa-autoreply-bridge/internal/infra/whatsapp"
)

// whatsappRepo implements the message repository over the bridge client
type whatsappRepo struct {
	client *whatsapp.Client
}

// NewWhatsAppRepo creates a WhatsApp message repository
func NewWhatsAppRepo(client *whatsapp.Client) repo.MessageRepo {
	return &whatsappRepo{client: client}
}

// NewMessageID returns a fresh WhatsApp Web style message id
func (r *whatsappRepo) NewMessageID() string {
	return whatsapp.NewMessageID()
}

// SendText sends a text message
func (r *whatsappRepo) SendText(ctx context.Context, chatID, msgID, text, quotedID string) error {
	return r.client.SendWithID(ctx, msgID, chatID, text, quotedID)
}

// SetTyping starts or stops the typing indicator
func (r *whatsappRepo) SetTyping(ctx context.Context, chatID string, typing bool) error {
	return r.client.SetPresence(ctx, chatID, typing)
}
