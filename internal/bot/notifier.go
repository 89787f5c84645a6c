package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"kidzone/internal/model"
)

// Sender delivers messages. *tele.Bot implements it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier pushes approval events to the admin chats.
type Notifier struct {
	sender  Sender
	chatIDs []int64
}

// NewNotifier creates a new Notifier.
func NewNotifier(sender Sender, chatIDs []int64) *Notifier {
	return &Notifier{sender: sender, chatIDs: chatIDs}
}

// ApprovalRequested announces a new pending account.
func (n *Notifier) ApprovalRequested(ctx context.Context, rec *model.UserApproval) error {
	return n.broadcast(ctx, fmt.Sprintf(
		"🆕 New account waiting for approval: %s\n\n/approve %s\n/reject %s",
		rec.Principal, rec.Principal, rec.Principal,
	))
}

// PendingDigest sends the list of pending accounts. Nothing is sent when the list is empty.
func (n *Notifier) PendingDigest(ctx context.Context, recs []*model.UserApproval) error {
	if len(recs) == 0 {
		return nil
	}
	return n.broadcast(ctx, formatPending(recs))
}

func (n *Notifier) broadcast(ctx context.Context, text string) error {
	var errs []error
	for _, id := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := n.sender.Send(&tele.Chat{ID: id}, text); err != nil {
			log.Warn().Err(err).Int64("chat_id", id).Msg("Failed to notify admin chat")
			errs = append(errs, fmt.Errorf("failed to notify chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
