// Package notify delivers the notifications the engine computes. Delivery is
// fire-and-forget: a failed email is logged and retried on a later sweep by
// virtue of the records still matching, it never rolls back lending state.
package notify

import (
	"context"
	"log/slog"

	mailjet "github.com/mailjet/mailjet-apiv3-go"

	"github.com/nathandem/library/model"
)

type Notifier struct {
	log        *slog.Logger
	sender     string
	publicKey  string
	privateKey string
}

// New builds a notifier sending through the MailJet API. Without keys the
// notifier runs in log-only mode, which is what dev and tests want.
func New(log *slog.Logger, sender, publicKey, privateKey string) *Notifier {
	return &Notifier{log: log, sender: sender, publicKey: publicKey, privateKey: privateKey}
}

// Dispatch sends the whole batch best-effort and reports nothing back;
// callers must not depend on delivery.
func (n *Notifier) Dispatch(ctx context.Context, batch []model.Notification) {
	for _, msg := range batch {
		if err := n.send(msg); err != nil {
			n.log.Error("notification send failed",
				"subscriber_id", msg.SubscriberID, "subject", msg.Subject, "err", err)
			continue
		}
		n.log.Info("notification sent",
			"subscriber_id", msg.SubscriberID, "subject", msg.Subject)
	}
}

func (n *Notifier) send(msg model.Notification) error {
	if n.publicKey == "" || n.privateKey == "" {
		n.log.Info("mailjet keys absent, not emailing",
			"recipient", msg.Email, "subject", msg.Subject)
		return nil
	}

	clt := mailjet.NewMailjetClient(n.publicKey, n.privateKey)
	msgs := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From:     &mailjet.RecipientV31{Email: n.sender},
		To:       &mailjet.RecipientsV31{mailjet.RecipientV31{Email: msg.Email}},
		Subject:  msg.Subject,
		TextPart: msg.Body,
	}}}
	_, err := clt.SendMailV31(&msgs)
	return err
}
