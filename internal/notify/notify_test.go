package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketChannel(t *testing.T) {
	assert.Equal(t, "ticket-abc", TicketChannel("abc"))
}

func TestNewPubNubPublisher_DefaultUserID(t *testing.T) {
	p := NewPubNubPublisher(Config{PublishKey: "pub", SubscribeKey: "sub"})

	require.NotNil(t, p.pn)
	assert.Equal(t, "ticket-ledger", string(p.pn.Config.GetUserId()))
	assert.Equal(t, "pub", p.pn.Config.PublishKey)
	assert.Equal(t, "sub", p.pn.Config.SubscribeKey)
}

func TestNop_Publish(t *testing.T) {
	var p Publisher = Nop{}

	err := p.Publish(context.Background(), LedgerChannel, map[string]any{"type": EventBlockSealed})

	assert.NoError(t, err)
}
