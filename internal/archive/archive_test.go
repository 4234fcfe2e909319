package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticket-ledger/internal/ledger"
	"ticket-ledger/models"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedChain(t *testing.T) []ledger.Block {
	t.Helper()

	l := ledger.New(ledger.Config{Difficulty: 1})
	id := l.IssueTicket("Alice", models.Event{
		Name:     "RockFest",
		City:     "Mumbai",
		Venue:    "NSCI Dome",
		TimeSlot: "2025-11-09 19:00",
		Price:    decimal.RequireFromString("5999.50"),
	})
	_, err := l.Mine(context.Background())
	require.NoError(t, err)
	require.True(t, l.TransferTicket(id, "Bob").OK())
	_, err = l.Mine(context.Background())
	require.NoError(t, err)

	return l.Blocks()
}

func TestCodec_RoundTrip(t *testing.T) {
	blocks := sealedChain(t)

	for _, b := range blocks {
		data, err := EncodeBlock(b)
		require.NoError(t, err)

		decoded, err := DecodeBlock(data)
		require.NoError(t, err)

		assert.Equal(t, b.Hash, decoded.Hash)
		assert.Equal(t, b.ComputeHash(), decoded.ComputeHash())
		assert.Len(t, decoded.Transactions, len(b.Transactions))
	}

	issued := blocks[1].Transactions[0]
	data, err := EncodeBlock(blocks[1])
	require.NoError(t, err)
	decoded, err := DecodeBlock(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Transactions[0].Event)
	assert.True(t, issued.Event.Price.Equal(decoded.Transactions[0].Event.Price))
}

func TestCodec_Deterministic(t *testing.T) {
	b := sealedChain(t)[1]

	first, err := EncodeBlock(b)
	require.NoError(t, err)
	second, err := EncodeBlock(b)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCodec_DecodeGarbage(t *testing.T) {
	_, err := DecodeBlock([]byte{0xff, 0x00})

	assert.Error(t, err)
}

const chainID = "c0ffee"

func TestRedisArchive_AppendBlock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	archive := NewRedisArchive(db, "")
	b := sealedChain(t)[1]

	data, err := EncodeBlock(b)
	require.NoError(t, err)
	mock.ExpectRPush("ledger:blocks:c0ffee", data).SetVal(2)

	err = archive.AppendBlock(context.Background(), chainID, b)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisArchive_AppendGenesisRegistersChain(t *testing.T) {
	db, mock := redismock.NewClientMock()
	archive := NewRedisArchive(db, "audit")
	genesis := sealedChain(t)[0]

	data, err := EncodeBlock(genesis)
	require.NoError(t, err)
	mock.ExpectSAdd("audit:chains", chainID).SetVal(1)
	mock.ExpectRPush("audit:blocks:c0ffee", data).SetVal(1)

	err = archive.AppendBlock(context.Background(), chainID, genesis)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisArchive_AppendBlockFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	archive := NewRedisArchive(db, "")
	b := sealedChain(t)[2]

	data, err := EncodeBlock(b)
	require.NoError(t, err)
	mock.ExpectRPush("ledger:blocks:c0ffee", data).SetErr(errors.New("connection refused"))

	err = archive.AppendBlock(context.Background(), chainID, b)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive block 2")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRedisArchive_LoadChainReplays(t *testing.T) {
	db, mock := redismock.NewClientMock()
	archive := NewRedisArchive(db, "")
	blocks := sealedChain(t)

	items := make([]string, len(blocks))
	for i, b := range blocks {
		data, err := EncodeBlock(b)
		require.NoError(t, err)
		items[i] = string(data)
	}
	mock.ExpectLRange("ledger:blocks:c0ffee", 0, -1).SetVal(items)

	loaded, err := archive.LoadChain(context.Background(), chainID)
	require.NoError(t, err)
	require.Len(t, loaded, len(blocks))

	replayed := ledger.New(ledger.Config{Difficulty: 1, Now: func() time.Time { return time.Unix(0, 1) }})
	require.NoError(t, replayed.Restore(loaded))
	assert.Equal(t, len(blocks), replayed.Len())
	assert.Equal(t, 1, replayed.TicketCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisArchive_LoadChainEmpty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	archive := NewRedisArchive(db, "")
	mock.ExpectLRange("ledger:blocks:c0ffee", 0, -1).SetVal([]string{})

	loaded, err := archive.LoadChain(context.Background(), chainID)

	assert.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRedisArchive_LoadChainCorrupt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	archive := NewRedisArchive(db, "")
	mock.ExpectLRange("ledger:blocks:c0ffee", 0, -1).SetVal([]string{"not cbor"})

	_, err := archive.LoadChain(context.Background(), chainID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 0")
}

func TestRedisArchive_Chains(t *testing.T) {
	db, mock := redismock.NewClientMock()
	archive := NewRedisArchive(db, "")
	mock.ExpectSMembers("ledger:chains").SetVal([]string{"a", "b"})

	chains, err := archive.Chains(context.Background())

	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, chains)
}

func TestRedisArchive_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	archive := NewRedisArchive(db, "")
	mock.ExpectPing().SetErr(errors.New("down"))

	assert.Error(t, archive.Ping(context.Background()))
}
