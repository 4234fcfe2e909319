package ledger

import (
	"fmt"

	"ticket-ledger/internal/status"
)

// IntegrityError reports the first block that breaks the chain.
type IntegrityError struct {
	Index  int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("block %d invalid: %s", e.Index, e.Reason)
}

func (e *IntegrityError) Unwrap() error {
	return status.ErrIntegrityViolation
}

func verifyBlocks(chain []Block, difficulty int) error {
	if len(chain) == 0 {
		return &IntegrityError{Index: 0, Reason: "empty chain"}
	}

	if err := verifyGenesis(&chain[0]); err != nil {
		return err
	}

	for i := 1; i < len(chain); i++ {
		if err := verifyBlock(&chain[i], &chain[i-1], difficulty); err != nil {
			return err
		}
	}
	return nil
}

// verifyGenesis checks block 0's shape and hash. Genesis is never sealed,
// so it is exempt from the difficulty predicate.
func verifyGenesis(b *Block) error {
	invalid := func(format string, args ...any) error {
		return &IntegrityError{Index: 0, Reason: fmt.Sprintf(format, args...)}
	}

	switch {
	case b.Index != 0:
		return invalid("genesis index is %d", b.Index)
	case b.PreviousHash != GenesisPrevHash:
		return invalid("genesis previous hash is %q", b.PreviousHash)
	case len(b.Transactions) != 0:
		return invalid("genesis carries %d transactions", len(b.Transactions))
	case b.Nonce != 0:
		return invalid("genesis nonce is %d", b.Nonce)
	}

	if expected := b.ComputeHash(); b.Hash != expected {
		return invalid("invalid hash: expected %s, got %s", expected, b.Hash)
	}
	return nil
}

func verifyBlock(current, previous *Block, difficulty int) error {
	invalid := func(format string, args ...any) error {
		return &IntegrityError{Index: current.Index, Reason: fmt.Sprintf(format, args...)}
	}

	if current.Index != previous.Index+1 {
		return &IntegrityError{
			Index:  previous.Index + 1,
			Reason: fmt.Sprintf("invalid index: expected %d, got %d", previous.Index+1, current.Index),
		}
	}

	for i, tx := range current.Transactions {
		if !tx.validUTF8() {
			return invalid("transaction %d is not valid UTF-8", i)
		}
	}

	if current.PreviousHash != previous.Hash {
		return invalid("invalid prev hash: expected %s, got %s", previous.Hash, current.PreviousHash)
	}

	if expected := current.ComputeHash(); current.Hash != expected {
		return invalid("invalid hash: expected %s, got %s", expected, current.Hash)
	}

	if !MeetsDifficulty(current.Hash, difficulty) {
		return invalid("hash %s does not meet difficulty %d", current.Hash, difficulty)
	}

	return nil
}
