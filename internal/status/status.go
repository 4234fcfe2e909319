package status

import "errors"

var (
	ErrTicketNotFound      = errors.New("ticket: ticket not found")
	ErrTicketNotValid      = errors.New("ticket: ticket is not valid")
	ErrInvalidInput        = errors.New("request: invalid input")
	ErrIntegrityViolation  = errors.New("chain: integrity violation")
	ErrNonceSpaceExhausted = errors.New("pow: nonce space exhausted")
	ErrChainNotEmpty       = errors.New("chain: ledger already has state")
	ErrBlockNotFound       = errors.New("chain: block not found")
	ErrChainNotFound       = errors.New("archive: chain not found")
	ErrEventNotFound       = errors.New("event: event not found")
)
