package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ticket-ledger/internal/status"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/tools/router"
)

// apiError maps service errors onto HTTP responses.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrInvalidInput):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrBlockNotFound),
		errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrChainNotFound):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrTicketNotValid):
		return router.NewApiError(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, status.ErrNonceSpaceExhausted):
		return router.NewApiError(http.StatusServiceUnavailable, "Block could not be sealed, try again later", nil)
	default:
		slog.Error("unexpected handler error", "error", err)
		return router.NewApiError(http.StatusInternalServerError, "Something went wrong", nil)
	}
}
