package handlers

import (
	"errors"
	"net/http"

	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/services"

	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	ledgerService *services.LedgerService
}

func NewAdminHandler(ledgerService *services.LedgerService) *AdminHandler {
	return &AdminHandler{ledgerService: ledgerService}
}

// Mine - Seal pending transactions now
func (h *AdminHandler) Mine(e *core.RequestEvent) error {
	block, err := h.ledgerService.Mine(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	if block == nil {
		return e.JSON(http.StatusOK, map[string]any{"sealed": false})
	}
	return e.JSON(http.StatusCreated, map[string]any{"sealed": true, "block": block})
}

// VerifyChain - Recompute every hash and check linkage and difficulty
func (h *AdminHandler) VerifyChain(e *core.RequestEvent) error {
	err := h.ledgerService.VerifyChain()
	if err == nil {
		return e.JSON(http.StatusOK, map[string]any{"valid": true})
	}

	resp := map[string]any{"valid": false, "error": err.Error()}
	var integrityErr *ledger.IntegrityError
	if errors.As(err, &integrityErr) {
		resp["block"] = integrityErr.Index
	}
	return e.JSON(http.StatusOK, resp)
}

// GetPending - Transactions waiting for the next block
func (h *AdminHandler) GetPending(e *core.RequestEvent) error {
	pending := h.ledgerService.Pending()
	return e.JSON(http.StatusOK, map[string]any{
		"count":        len(pending),
		"transactions": pending,
	})
}

// GetStats - Chain height, pending count and archive progress
func (h *AdminHandler) GetStats(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, h.ledgerService.Stats())
}

// ListArchivedChains - Chain ids known to the archive
func (h *AdminHandler) ListArchivedChains(e *core.RequestEvent) error {
	chains, err := h.ledgerService.ArchivedChains(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"chains": chains})
}

// AuditArchivedChain - Replay an archived chain and report its integrity
func (h *AdminHandler) AuditArchivedChain(e *core.RequestEvent) error {
	report, err := h.ledgerService.AuditArchive(e.Request.Context(), e.Request.PathValue("chainId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, report)
}

// RunDemo - Issue, transfer and redeem one ticket end to end
func (h *AdminHandler) RunDemo(e *core.RequestEvent) error {
	result, err := h.ledgerService.RunDemo(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, result)
}

// Health - Liveness plus archive reachability
func (h *AdminHandler) Health(e *core.RequestEvent) error {
	if err := h.ledgerService.Health(e.Request.Context()); err != nil {
		return e.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
