package notify

import (
	"context"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"
)

const (
	// LedgerChannel carries chain-wide events such as sealed blocks.
	LedgerChannel = "ledger-blocks"

	EventBlockSealed    = "block_sealed"
	EventTicketIssued   = "ticket_issued"
	EventTicketTransfer = "ticket_transferred"
	EventTicketRedeemed = "ticket_redeemed"
)

// Publisher pushes ledger events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel string, message map[string]any) error
}

// TicketChannel is the per-ticket channel holders subscribe to.
func TicketChannel(ticketID string) string {
	return "ticket-" + ticketID
}

type Config struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
}

type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(cfg Config) *PubNubPublisher {
	userID := cfg.UserID
	if userID == "" {
		userID = "ticket-ledger"
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey

	return &PubNubPublisher{pn: pubnub.NewPubNub(pnCfg)}
}

func (p *PubNubPublisher) Publish(ctx context.Context, channel string, message map[string]any) error {
	_, status, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		return fmt.Errorf("publish to %s (status %d): %w", channel, status.StatusCode, err)
	}
	return nil
}

// Nop discards every message. It is used when PubNub is not configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, channel string, message map[string]any) error {
	slog.Debug("notification dropped", "channel", channel, "type", message["type"])
	return nil
}
