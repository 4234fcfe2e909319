package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"ticket-ledger/internal/ledger"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// CollectionName is the PocketBase collection holding archived blocks.
const CollectionName = "ledger_blocks"

// PocketBaseArchive stores each block as a ledger_blocks record keyed by
// chain id and index, with the block itself as a JSON payload.
type PocketBaseArchive struct {
	app core.App
}

func NewPocketBaseArchive(app core.App) *PocketBaseArchive {
	return &PocketBaseArchive{app: app}
}

func (a *PocketBaseArchive) AppendBlock(ctx context.Context, chainID string, b ledger.Block) error {
	collection, err := a.app.FindCollectionByNameOrId(CollectionName)
	if err != nil {
		return fmt.Errorf("archive block %d: %w", b.Index, err)
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("archive block %d: %w", b.Index, err)
	}

	record := core.NewRecord(collection)
	record.Set("chain", chainID)
	record.Set("seq", b.Index)
	record.Set("hash", b.Hash)
	record.Set("payload", types.JSONRaw(payload))

	if err := a.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("archive block %d: %w", b.Index, err)
	}
	return nil
}

func (a *PocketBaseArchive) LoadChain(ctx context.Context, chainID string) ([]ledger.Block, error) {
	records, err := a.app.FindRecordsByFilter(
		CollectionName,
		"chain = {:chain}",
		"seq",
		0,
		0,
		dbx.Params{"chain": chainID},
	)
	if err != nil {
		return nil, fmt.Errorf("load chain %s: %w", chainID, err)
	}

	blocks := make([]ledger.Block, 0, len(records))
	for _, record := range records {
		var b ledger.Block
		if err := record.UnmarshalJSONField("payload", &b); err != nil {
			return nil, fmt.Errorf("load chain %s: record %s: %w", chainID, record.Id, err)
		}
		if b.Hash != record.GetString("hash") {
			return nil, fmt.Errorf("load chain %s: record %s: payload hash does not match", chainID, record.Id)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (a *PocketBaseArchive) Chains(ctx context.Context) ([]string, error) {
	var chains []string
	err := a.app.DB().
		Select("chain").
		Distinct(true).
		From(CollectionName).
		OrderBy("chain").
		WithContext(ctx).
		Column(&chains)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	return chains, nil
}

func (a *PocketBaseArchive) Ping(ctx context.Context) error {
	_, err := a.app.FindCollectionByNameOrId(CollectionName)
	return err
}
