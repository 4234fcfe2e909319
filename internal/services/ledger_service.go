package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/notify"
	"ticket-ledger/internal/status"
	"ticket-ledger/models"
	"ticket-ledger/monitoring"
	"ticket-ledger/utils"

	"github.com/shopspring/decimal"
)

// ChainLoader reads an archived chain back in order.
type ChainLoader interface {
	LoadChain(ctx context.Context, chainID string) ([]ledger.Block, error)
}

// Archive mirrors sealed blocks to external storage.
type Archive interface {
	ChainLoader
	AppendBlock(ctx context.Context, chainID string, b ledger.Block) error
	Chains(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Catalog   *models.Catalog
	Archive   Archive
	Breaker   *utils.CircuitBreaker
	Publisher notify.Publisher
	Monitor   *monitoring.Monitor
	Logger    *slog.Logger

	// MineOnWrite seals a block after every successful ticket command.
	MineOnWrite bool
	// MineTimeout bounds one proof-of-work search. Zero means no bound.
	MineTimeout       time.Duration
	MaxBookingTickets int
}

type LedgerService struct {
	ledger    *ledger.Ledger
	catalog   *models.Catalog
	archive   Archive
	breaker   *utils.CircuitBreaker
	publisher notify.Publisher
	monitor   *monitoring.Monitor
	logger    *slog.Logger

	mineOnWrite       bool
	mineTimeout       time.Duration
	maxBookingTickets int

	archiveMu sync.Mutex
	archived  int
}

func NewLedgerService(l *ledger.Ledger, opts Options) *LedgerService {
	s := &LedgerService{
		ledger:            l,
		catalog:           opts.Catalog,
		archive:           opts.Archive,
		breaker:           opts.Breaker,
		publisher:         opts.Publisher,
		monitor:           opts.Monitor,
		logger:            opts.Logger,
		mineOnWrite:       opts.MineOnWrite,
		mineTimeout:       opts.MineTimeout,
		maxBookingTickets: opts.MaxBookingTickets,
	}
	if s.catalog == nil {
		s.catalog = models.DefaultCatalog()
	}
	if s.breaker == nil {
		s.breaker = utils.NewCircuitBreaker("archive")
	}
	if s.publisher == nil {
		s.publisher = notify.Nop{}
	}
	if s.monitor == nil {
		s.monitor = monitoring.NewMonitor(l)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxBookingTickets <= 0 {
		s.maxBookingTickets = 10
	}
	return s
}

// IssueTicket records a new valid ticket for owner.
func (s *LedgerService) IssueTicket(ctx context.Context, owner string, event models.Event) (string, error) {
	owner = strings.TrimSpace(owner)
	if err := validateName("owner", owner); err != nil {
		return "", err
	}
	if err := validateEvent(event); err != nil {
		return "", err
	}

	ticketID := s.ledger.IssueTicket(owner, event)
	s.monitor.TrackTicketOperation(string(ledger.TxIssue), ledger.Ok.String())
	s.logger.Info("ticket issued", "ticketID", ticketID, "owner", owner, "event", event.Name)

	s.publish(ctx, notify.TicketChannel(ticketID), map[string]any{
		"type":      notify.EventTicketIssued,
		"ticket_id": ticketID,
		"owner":     owner,
		"event":     event.Name,
	})
	s.afterWrite(ctx)

	return ticketID, nil
}

func validateName(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", status.ErrInvalidInput, field)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: %s is not valid UTF-8", status.ErrInvalidInput, field)
	}
	return nil
}

func validateEvent(event models.Event) error {
	if err := validateName("event name", strings.TrimSpace(event.Name)); err != nil {
		return err
	}
	for field, value := range map[string]string{
		"event city":      event.City,
		"event venue":     event.Venue,
		"event time slot": event.TimeSlot,
	} {
		if !utf8.ValidString(value) {
			return fmt.Errorf("%w: %s is not valid UTF-8", status.ErrInvalidInput, field)
		}
	}
	if event.Price.IsNegative() {
		return fmt.Errorf("%w: event price must not be negative", status.ErrInvalidInput)
	}
	return nil
}

type BookingRequest struct {
	Owner    string `json:"owner"`
	Event    string `json:"event"`
	TimeSlot string `json:"time_slot"`
	Quantity int    `json:"quantity"`
}

type Booking struct {
	Reference string          `json:"reference"`
	Owner     string          `json:"owner"`
	Event     models.Event    `json:"event"`
	TicketIDs []string        `json:"ticket_ids"`
	Total     decimal.Decimal `json:"total"`
	// Block is the block sealing the booking. It is nil when sealing failed
	// and the tickets are still pending, or when a concurrent miner sealed
	// them first.
	Block *ledger.Block `json:"block,omitempty"`
}

// BookTickets issues Quantity tickets for one catalog listing and seals them
// into a block.
func (s *LedgerService) BookTickets(ctx context.Context, req BookingRequest) (*Booking, error) {
	owner := strings.TrimSpace(req.Owner)
	if err := validateName("owner", owner); err != nil {
		return nil, err
	}
	if req.Quantity < 1 || req.Quantity > s.maxBookingTickets {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", status.ErrInvalidInput, s.maxBookingTickets)
	}

	listing, ok := s.catalog.Find(req.Event)
	if !ok {
		return nil, fmt.Errorf("%w: %q", status.ErrEventNotFound, req.Event)
	}
	event, err := listing.Book(req.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInvalidInput, err)
	}

	reference, err := utils.BookingReference()
	if err != nil {
		return nil, fmt.Errorf("booking reference: %w", err)
	}

	booking := &Booking{
		Reference: reference,
		Owner:     owner,
		Event:     event,
		TicketIDs: make([]string, 0, req.Quantity),
		Total:     event.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
	}
	for i := 0; i < req.Quantity; i++ {
		booking.TicketIDs = append(booking.TicketIDs, s.ledger.IssueTicket(owner, event))
		s.monitor.TrackTicketOperation(string(ledger.TxIssue), ledger.Ok.String())
	}
	s.logger.Info("tickets booked",
		"reference", reference,
		"owner", owner,
		"event", event.Name,
		"timeSlot", event.TimeSlot,
		"quantity", req.Quantity,
	)

	block, err := s.Mine(ctx)
	if err != nil {
		s.logger.Warn("booking left pending", "reference", reference, "error", err)
	}
	booking.Block = block

	for _, id := range booking.TicketIDs {
		s.publish(ctx, notify.TicketChannel(id), map[string]any{
			"type":      notify.EventTicketIssued,
			"ticket_id": id,
			"owner":     owner,
			"event":     event.Name,
			"reference": reference,
		})
	}
	return booking, nil
}

// TransferTicket moves a valid ticket to newOwner.
func (s *LedgerService) TransferTicket(ctx context.Context, ticketID, newOwner string) error {
	newOwner = strings.TrimSpace(newOwner)
	if err := validateName("new owner", newOwner); err != nil {
		return err
	}

	res := s.ledger.TransferTicket(ticketID, newOwner)
	s.monitor.TrackTicketOperation(string(ledger.TxTransfer), res.String())
	if !res.OK() {
		return fmt.Errorf("transfer %s: %w", ticketID, res.Err())
	}
	s.logger.Info("ticket transferred", "ticketID", ticketID, "newOwner", newOwner)

	s.publish(ctx, notify.TicketChannel(ticketID), map[string]any{
		"type":      notify.EventTicketTransfer,
		"ticket_id": ticketID,
		"new_owner": newOwner,
	})
	s.afterWrite(ctx)

	return nil
}

// RedeemTicket consumes a valid ticket.
func (s *LedgerService) RedeemTicket(ctx context.Context, ticketID string) error {
	res := s.ledger.RedeemTicket(ticketID)
	s.monitor.TrackTicketOperation(string(ledger.TxRedeem), res.String())
	if !res.OK() {
		return fmt.Errorf("redeem %s: %w", ticketID, res.Err())
	}
	s.logger.Info("ticket redeemed", "ticketID", ticketID)

	s.publish(ctx, notify.TicketChannel(ticketID), map[string]any{
		"type":      notify.EventTicketRedeemed,
		"ticket_id": ticketID,
	})
	s.afterWrite(ctx)

	return nil
}

func (s *LedgerService) VerifyTicket(ticketID string) (models.Ticket, error) {
	t, ok := s.ledger.VerifyTicket(ticketID)
	if !ok {
		return models.Ticket{}, status.ErrTicketNotFound
	}
	return t, nil
}

func (s *LedgerService) afterWrite(ctx context.Context) {
	if !s.mineOnWrite {
		return
	}
	// failures are logged by Mine; the transaction stays pending
	_, _ = s.Mine(ctx)
}

// Mine seals pending transactions into a block, mirrors it to the archive
// and announces it. It returns nil, nil when nothing is pending.
func (s *LedgerService) Mine(ctx context.Context) (*ledger.Block, error) {
	sealCtx := ctx
	if s.mineTimeout > 0 {
		var cancel context.CancelFunc
		sealCtx, cancel = context.WithTimeout(ctx, s.mineTimeout)
		defer cancel()
	}

	start := time.Now()
	block, err := s.ledger.Mine(sealCtx)
	if err != nil {
		s.logger.Error("mining failed", "pending", s.ledger.PendingCount(), "error", err)
		return nil, err
	}
	if block == nil {
		return nil, nil
	}

	elapsed := time.Since(start)
	s.monitor.TrackBlockSealed(elapsed)
	s.logger.Info("block sealed",
		"index", block.Index,
		"transactions", len(block.Transactions),
		"nonce", block.Nonce,
		"hash", block.Hash,
		"duration", elapsed,
	)

	if err := s.SyncArchive(ctx); err != nil {
		s.logger.Warn("archive behind chain", "error", err)
	}
	s.publish(ctx, notify.LedgerChannel, map[string]any{
		"type":         notify.EventBlockSealed,
		"index":        block.Index,
		"hash":         block.Hash,
		"transactions": len(block.Transactions),
	})

	return block, nil
}

// SyncArchive appends every block the archive has not seen yet, genesis
// included. It stops at the first failure and resumes there next time.
func (s *LedgerService) SyncArchive(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}

	s.archiveMu.Lock()
	defer s.archiveMu.Unlock()

	chainID := s.ledger.ChainID()
	for {
		b, ok := s.ledger.Block(s.archived)
		if !ok {
			return nil
		}

		_, err := s.breaker.Execute(ctx, func() (any, error) {
			return nil, s.archive.AppendBlock(ctx, chainID, b)
		})
		s.monitor.TrackArchiveOperation("append", err)
		if err != nil {
			return fmt.Errorf("archive block %d: %w", b.Index, err)
		}
		s.archived++
	}
}

// VerifyChain checks the live chain. See ledger.Ledger.VerifyChain.
func (s *LedgerService) VerifyChain() error {
	err := s.ledger.VerifyChain()
	s.monitor.TrackChainVerification(err == nil)
	if err != nil {
		s.logger.Error("chain verification failed", "error", err)
	}
	return err
}

func (s *LedgerService) Blocks() []ledger.Block {
	return s.ledger.Blocks()
}

func (s *LedgerService) Block(index int) (ledger.Block, error) {
	b, ok := s.ledger.Block(index)
	if !ok {
		return ledger.Block{}, status.ErrBlockNotFound
	}
	return b, nil
}

func (s *LedgerService) Pending() []ledger.Transaction {
	return s.ledger.Pending()
}

func (s *LedgerService) Catalog() []models.Listing {
	return s.catalog.Listings()
}

type Stats struct {
	ChainID    string `json:"chain_id"`
	Height     int    `json:"height"`
	Pending    int    `json:"pending"`
	Tickets    int    `json:"tickets"`
	Difficulty int    `json:"difficulty"`
	Archived   int    `json:"archived"`
}

func (s *LedgerService) Stats() Stats {
	s.archiveMu.Lock()
	archived := s.archived
	s.archiveMu.Unlock()

	return Stats{
		ChainID:    s.ledger.ChainID(),
		Height:     s.ledger.Len(),
		Pending:    s.ledger.PendingCount(),
		Tickets:    s.ledger.TicketCount(),
		Difficulty: s.ledger.Difficulty(),
		Archived:   archived,
	}
}

// Health reports whether the archive, if any, is reachable.
func (s *LedgerService) Health(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}
	return s.archive.Ping(ctx)
}

func (s *LedgerService) ArchivedChains(ctx context.Context) ([]string, error) {
	if s.archive == nil {
		return nil, errArchiveDisabled
	}
	return s.archive.Chains(ctx)
}

func (s *LedgerService) AuditArchive(ctx context.Context, chainID string) (*AuditReport, error) {
	if s.archive == nil {
		return nil, errArchiveDisabled
	}
	report, err := AuditChain(ctx, s.archive, chainID, s.ledger.Difficulty())
	s.monitor.TrackArchiveOperation("audit", err)
	return report, err
}

var errArchiveDisabled = fmt.Errorf("%w: no archive configured", status.ErrChainNotFound)

type AuditReport struct {
	ChainID string `json:"chain_id"`
	Blocks  int    `json:"blocks"`
	Tickets int    `json:"tickets"`
	Valid   bool   `json:"valid"`
	Problem string `json:"problem,omitempty"`
	// BadBlock is the index of the first invalid block, if one was found.
	BadBlock *int `json:"bad_block,omitempty"`
}

// AuditChain loads an archived chain and replays it through a fresh ledger,
// which verifies every block and rebuilds the ticket registry. A chain that
// fails verification yields a report with Valid false, not an error.
func AuditChain(ctx context.Context, loader ChainLoader, chainID string, difficulty int) (*AuditReport, error) {
	blocks, err := loader.LoadChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", status.ErrChainNotFound, chainID)
	}

	report := &AuditReport{ChainID: chainID, Blocks: len(blocks)}

	replay := ledger.New(ledger.Config{Difficulty: difficulty})
	if err := replay.Restore(blocks); err != nil {
		report.Problem = err.Error()
		var integrityErr *ledger.IntegrityError
		if errors.As(err, &integrityErr) {
			report.BadBlock = &integrityErr.Index
		}
		return report, nil
	}

	if replay.ChainID() != chainID {
		report.Problem = fmt.Sprintf("genesis hash %s does not match chain id", replay.ChainID())
		return report, nil
	}

	report.Tickets = replay.TicketCount()
	report.Valid = true
	return report, nil
}

// RunAutoMiner seals pending transactions every interval and retries
// archive appends that failed earlier. It returns when ctx is done.
func (s *LedgerService) RunAutoMiner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("auto miner started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto miner stopped")
			return
		case <-ticker.C:
			if s.ledger.PendingCount() > 0 {
				_, _ = s.Mine(ctx)
				continue
			}
			if err := s.SyncArchive(ctx); err != nil {
				s.logger.Warn("archive retry failed", "error", err)
			}
		}
	}
}

type DemoResult struct {
	TicketID   string         `json:"ticket_id"`
	Ticket     models.Ticket  `json:"ticket"`
	Sealed     []ledger.Block `json:"sealed"`
	ChainValid bool           `json:"chain_valid"`
}

// RunDemo walks one ticket through its whole life: issue to Alice, transfer
// to Bob and redeem, sealing a block after each step. Sealed lists every
// block appended while it ran.
func (s *LedgerService) RunDemo(ctx context.Context) (*DemoResult, error) {
	listings := s.catalog.Listings()
	if len(listings) == 0 || len(listings[0].TimeSlots) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", status.ErrEventNotFound)
	}
	event, err := listings[0].Book(listings[0].TimeSlots[0])
	if err != nil {
		return nil, err
	}

	result := &DemoResult{}
	height := s.ledger.Len()
	seal := func() error {
		_, err := s.Mine(ctx)
		return err
	}

	if result.TicketID, err = s.IssueTicket(ctx, "Alice", event); err != nil {
		return nil, err
	}
	if err := seal(); err != nil {
		return nil, err
	}
	if err := s.TransferTicket(ctx, result.TicketID, "Bob"); err != nil {
		return nil, err
	}
	if err := seal(); err != nil {
		return nil, err
	}
	if err := s.RedeemTicket(ctx, result.TicketID); err != nil {
		return nil, err
	}
	if err := seal(); err != nil {
		return nil, err
	}

	if result.Ticket, err = s.VerifyTicket(result.TicketID); err != nil {
		return nil, err
	}
	for i := height; ; i++ {
		b, ok := s.ledger.Block(i)
		if !ok {
			break
		}
		result.Sealed = append(result.Sealed, b)
	}
	result.ChainValid = s.VerifyChain() == nil
	return result, nil
}

func (s *LedgerService) publish(ctx context.Context, channel string, message map[string]any) {
	if err := s.publisher.Publish(ctx, channel, message); err != nil {
		s.logger.Warn("notification failed", "channel", channel, "type", message["type"], "error", err)
	}
}
