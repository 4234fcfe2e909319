package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// GenesisPrevHash is the previous-hash seed of block 0.
const GenesisPrevHash = "0"

type Block struct {
	Index        int           `json:"index"`
	Transactions []Transaction `json:"transactions"`
	Timestamp    int64         `json:"timestamp"`
	PreviousHash string        `json:"previous_hash"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
}

// ComputeHash returns the SHA-256 hex digest of the block's canonical
// encoding. Hash itself is not part of the input.
func (b *Block) ComputeHash() string {
	return newHashInput(b).digest(b.Nonce, nil)
}

func (b Block) clone() Block {
	txs := make([]Transaction, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = tx.clone()
	}
	b.Transactions = txs
	return b
}

// hashInput splits the canonical encoding around the nonce so the
// proof-of-work loop only formats one integer per attempt. Keys are
// emitted in alphabetical order:
//
//	{"index":I,"nonce":N,"previous_hash":P,"timestamp":T,"transactions":[...]}
type hashInput struct {
	prefix []byte
	suffix []byte
}

func newHashInput(b *Block) hashInput {
	txs := make([]txPayload, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		txs = append(txs, tx.payload())
	}
	// plain strings and ints only; Marshal cannot fail here
	txJSON, _ := json.Marshal(txs)
	prevJSON, _ := json.Marshal(b.PreviousHash)

	prefix := make([]byte, 0, 32)
	prefix = append(prefix, `{"index":`...)
	prefix = strconv.AppendInt(prefix, int64(b.Index), 10)
	prefix = append(prefix, `,"nonce":`...)

	suffix := make([]byte, 0, len(txJSON)+len(prevJSON)+64)
	suffix = append(suffix, `,"previous_hash":`...)
	suffix = append(suffix, prevJSON...)
	suffix = append(suffix, `,"timestamp":`...)
	suffix = strconv.AppendInt(suffix, b.Timestamp, 10)
	suffix = append(suffix, `,"transactions":`...)
	suffix = append(suffix, txJSON...)
	suffix = append(suffix, '}')

	return hashInput{prefix: prefix, suffix: suffix}
}

// digest hashes the encoding for nonce. buf is scratch space and may be nil.
func (h hashInput) digest(nonce uint64, buf []byte) string {
	buf = append(buf[:0], h.prefix...)
	buf = strconv.AppendUint(buf, nonce, 10)
	buf = append(buf, h.suffix...)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// MeetsDifficulty reports whether hash starts with at least difficulty '0'
// hex characters.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	return len(hash) >= difficulty && strings.Count(hash[:difficulty], "0") == difficulty
}
