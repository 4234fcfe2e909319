package handlers

import (
	"net/http"
	"strconv"

	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/services"
	"ticket-ledger/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

const (
	defaultBlockPage = 50
	maxBlockPage     = 200
)

type TicketHandler struct {
	ledgerService *services.LedgerService
}

func NewTicketHandler(ledgerService *services.LedgerService) *TicketHandler {
	return &TicketHandler{ledgerService: ledgerService}
}

// ListEvents - Catalog of events on sale
func (h *TicketHandler) ListEvents(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, h.ledgerService.Catalog())
}

// BookTickets - Issue several tickets for one listing and seal them
func (h *TicketHandler) BookTickets(e *core.RequestEvent) error {
	var req services.BookingRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	booking, err := h.ledgerService.BookTickets(e.Request.Context(), req)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, booking)
}

type issueRequest struct {
	Owner string       `json:"owner"`
	Event models.Event `json:"event"`
}

// IssueTicket - Issue one ticket for an arbitrary event descriptor
func (h *TicketHandler) IssueTicket(e *core.RequestEvent) error {
	var req issueRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	ticketID, err := h.ledgerService.IssueTicket(e.Request.Context(), req.Owner, req.Event)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, map[string]any{"ticket_id": ticketID})
}

// GetTicket - Current owner and status of a ticket
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	ticket, err := h.ledgerService.VerifyTicket(e.Request.PathValue("ticketId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, ticket)
}

type transferRequest struct {
	NewOwner string `json:"new_owner"`
}

// TransferTicket - Move a valid ticket to a new owner
func (h *TicketHandler) TransferTicket(e *core.RequestEvent) error {
	var req transferRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	ticketID := e.Request.PathValue("ticketId")
	if err := h.ledgerService.TransferTicket(e.Request.Context(), ticketID, req.NewOwner); err != nil {
		return apiError(err)
	}
	return h.GetTicket(e)
}

// RedeemTicket - Consume a valid ticket
func (h *TicketHandler) RedeemTicket(e *core.RequestEvent) error {
	ticketID := e.Request.PathValue("ticketId")
	if err := h.ledgerService.RedeemTicket(e.Request.Context(), ticketID); err != nil {
		return apiError(err)
	}
	return h.GetTicket(e)
}

// ListBlocks - Page through the chain, oldest first
func (h *TicketHandler) ListBlocks(e *core.RequestEvent) error {
	query := e.Request.URL.Query()

	from, err := queryInt(query.Get("from"), 0)
	if err != nil || from < 0 {
		return apis.NewBadRequestError("Invalid from", nil)
	}
	limit, err := queryInt(query.Get("limit"), defaultBlockPage)
	if err != nil || limit < 1 {
		return apis.NewBadRequestError("Invalid limit", nil)
	}
	if limit > maxBlockPage {
		limit = maxBlockPage
	}

	blocks := h.ledgerService.Blocks()
	page := []ledger.Block{}
	if from < len(blocks) {
		end := min(from+limit, len(blocks))
		page = blocks[from:end]
	}

	return e.JSON(http.StatusOK, map[string]any{
		"height": len(blocks),
		"from":   from,
		"blocks": page,
	})
}

// GetBlock - One block by index
func (h *TicketHandler) GetBlock(e *core.RequestEvent) error {
	index, err := strconv.Atoi(e.Request.PathValue("index"))
	if err != nil {
		return apis.NewBadRequestError("Invalid block index", nil)
	}

	block, err := h.ledgerService.Block(index)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, block)
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
