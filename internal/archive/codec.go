package archive

import (
	"fmt"

	"ticket-ledger/internal/ledger"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so the same block always
// archives to the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("archive: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("archive: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeBlock returns the archived form of b.
func EncodeBlock(b ledger.Block) ([]byte, error) {
	data, err := encMode.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode block %d: %w", b.Index, err)
	}
	return data, nil
}

func DecodeBlock(data []byte) (ledger.Block, error) {
	var b ledger.Block
	if err := decMode.Unmarshal(data, &b); err != nil {
		return ledger.Block{}, fmt.Errorf("decode block: %w", err)
	}
	return b, nil
}
