package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticket-ledger/internal/status"
	"ticket-ledger/models"

	"github.com/google/uuid"
)

type Config struct {
	// Difficulty is the number of leading zero hex digits a sealed block
	// hash needs. Zero selects DefaultDifficulty.
	Difficulty int
	Workers    int
	MaxNonce   uint64

	// Now and NewID default to the wall clock and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// Ledger owns the chain, the pending buffer and the ticket registry. All
// methods are safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	chain    []Block
	pending  []Transaction
	registry *Registry

	// mineMu serializes Mine and Restore, the only writers of chain.
	mineMu sync.Mutex

	sealer Sealer
	now    func() time.Time
	newID  func() string
}

func New(cfg Config) *Ledger {
	if cfg.Difficulty == 0 {
		cfg.Difficulty = DefaultDifficulty
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	l := &Ledger{
		registry: NewRegistry(),
		sealer: Sealer{
			Difficulty: cfg.Difficulty,
			Workers:    cfg.Workers,
			MaxNonce:   cfg.MaxNonce,
		},
		now:   cfg.Now,
		newID: cfg.NewID,
	}

	genesis := Block{
		Index:        0,
		Transactions: []Transaction{},
		Timestamp:    l.now().UnixNano(),
		PreviousHash: GenesisPrevHash,
		Nonce:        0,
	}
	genesis.Hash = genesis.ComputeHash()
	l.chain = []Block{genesis}

	return l
}

// IssueTicket creates a valid ticket for owner and returns its id. Invalid
// UTF-8 in owner or event is replaced with U+FFFD before it is recorded.
func (l *Ledger) IssueTicket(owner string, event models.Event) string {
	owner, event = sanitize(owner), sanitizeEvent(event)

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.newID()
	for {
		if _, taken := l.registry.tickets[id]; !taken {
			break
		}
		id = l.newID()
	}

	l.submit(NewIssue(id, owner, event, l.now()))
	return id
}

// TransferTicket moves a valid ticket to newOwner.
func (l *Ledger) TransferTicket(ticketID, newOwner string) Result {
	newOwner = sanitize(newOwner)

	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.registry.tickets[ticketID]
	if !ok {
		return NotFound
	}
	return l.submit(NewTransfer(ticketID, t.Owner, newOwner, l.now()))
}

// RedeemTicket marks a valid ticket as redeemed. Redemption is terminal.
func (l *Ledger) RedeemTicket(ticketID string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.registry.tickets[ticketID]
	if !ok {
		return NotFound
	}
	return l.submit(NewRedeem(ticketID, t.Owner, l.now()))
}

// VerifyTicket returns a snapshot of the ticket's state.
func (l *Ledger) VerifyTicket(ticketID string) (models.Ticket, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.registry.Get(ticketID)
}

// submit applies tx to the registry and appends it to pending in the same
// critical section. Callers hold l.mu.
func (l *Ledger) submit(tx Transaction) Result {
	if res := l.registry.check(tx); res != Ok {
		return res
	}
	if err := l.registry.Apply(tx); err != nil {
		return InvalidState
	}
	l.addTransaction(tx)
	return Ok
}

func (l *Ledger) addTransaction(tx Transaction) {
	l.pending = append(l.pending, tx.clone())
}

// Mine seals every pending transaction into a new block and appends it. It
// returns a nil block and nil error when there is nothing to seal.
//
// The proof-of-work search runs without holding the state lock, so tickets
// can be issued while a block is being sealed; those land in the next
// block. If ctx ends first, pending is left exactly as it was.
func (l *Ledger) Mine(ctx context.Context) (*Block, error) {
	l.mineMu.Lock()
	defer l.mineMu.Unlock()

	l.mu.RLock()
	if len(l.pending) == 0 {
		l.mu.RUnlock()
		return nil, nil
	}
	txs := make([]Transaction, len(l.pending))
	for i, tx := range l.pending {
		txs[i] = tx.clone()
	}
	tip := l.chain[len(l.chain)-1]
	l.mu.RUnlock()

	block := Block{
		Index:        tip.Index + 1,
		Transactions: txs,
		Timestamp:    l.now().UnixNano(),
		PreviousHash: tip.Hash,
		Nonce:        0,
	}
	if err := l.sealer.Seal(ctx, &block); err != nil {
		return nil, fmt.Errorf("seal block %d: %w", block.Index, err)
	}

	l.mu.Lock()
	// pending only grows while we were sealing, so the snapshot is still
	// its prefix
	l.pending = append([]Transaction(nil), l.pending[len(txs):]...)
	l.chain = append(l.chain, block)
	l.mu.Unlock()

	sealed := block.clone()
	return &sealed, nil
}

// VerifyChain checks every block. It returns nil for an intact chain or an
// *IntegrityError naming the first bad block.
func (l *Ledger) VerifyChain() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return verifyBlocks(l.chain, l.sealer.Difficulty)
}

// Restore replaces a fresh ledger's chain with blocks, typically loaded from
// an archive for audit, and rebuilds the registry by replaying them. The
// blocks must form a valid chain starting at genesis.
func (l *Ledger) Restore(blocks []Block) error {
	l.mineMu.Lock()
	defer l.mineMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.chain) > 1 || len(l.pending) > 0 || l.registry.Len() > 0 {
		return status.ErrChainNotEmpty
	}
	if len(blocks) == 0 {
		return nil
	}

	chain := make([]Block, len(blocks))
	for i, b := range blocks {
		chain[i] = b.clone()
	}
	if err := verifyBlocks(chain, l.sealer.Difficulty); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	registry := NewRegistry()
	for _, b := range chain {
		for _, tx := range b.Transactions {
			if err := registry.Apply(tx); err != nil {
				return fmt.Errorf("restore: replay block %d: %w", b.Index, err)
			}
		}
	}

	l.chain = chain
	l.registry = registry
	return nil
}

// Blocks returns a copy of the chain.
func (l *Ledger) Blocks() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Block, len(l.chain))
	for i, b := range l.chain {
		out[i] = b.clone()
	}
	return out
}

func (l *Ledger) Block(index int) (Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.chain) {
		return Block{}, false
	}
	return l.chain[index].clone(), true
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.chain)
}

// Pending returns a copy of the transactions not yet sealed.
func (l *Ledger) Pending() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Transaction, len(l.pending))
	for i, tx := range l.pending {
		out[i] = tx.clone()
	}
	return out
}

func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.pending)
}

func (l *Ledger) TicketCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.registry.Len()
}

// ChainID identifies the chain by the hash of its genesis block.
func (l *Ledger) ChainID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain[0].Hash
}

func (l *Ledger) Difficulty() int {
	return l.sealer.Difficulty
}
