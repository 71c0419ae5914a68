package store

import (
	"errors"

	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/types"
)

// ErrPivotAlreadyAdopted is returned by AdoptPivot when the database
// already has a head block recorded.
var ErrPivotAlreadyAdopted = errors.New("store: pivot already adopted")

// AdoptPivot finalizes a completed snap sync: header/body/receipts for the
// pivot block are written under its own number/hash, the canonical chain
// is rooted at it (no ancestor history is claimed back to genesis), and
// the head/safe/finalized pointers and metadata.json are stamped exactly
// as InitFromGenesis stamps them for block zero. The account and storage
// tries themselves must already be fully present in db (written by the
// snap sync account/storage ingesters and healer) before this is called.
func AdoptPivot(db rawdb.Database, header *types.Header, body []byte, receipts types.ReceiptList, chainID uint64) (*types.Block, error) {
	if _, err := rawdb.ReadHeadBlockHash(db); err == nil {
		return nil, ErrPivotAlreadyAdopted
	}

	block := &types.Block{Header: header, BodyData: body}
	hash := block.Hash()

	headerEnc, err := header.EncodeRLP()
	if err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteHeader(db, header.Number, hash, headerEnc); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteBody(db, header.Number, hash, body); err != nil {
		return nil, wrap(err)
	}
	receiptsEnc, err := receipts.EncodeRLP()
	if err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteReceipts(db, header.Number, hash, receiptsEnc); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteCanonicalHash(db, header.Number, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteBlockNumber(db, hash, header.Number); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteHeadHeaderHash(db, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteHeadBlockHash(db, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteSafeHash(db, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteFinalizedHash(db, hash); err != nil {
		return nil, wrap(err)
	}
	if err := rawdb.WriteMetadata(db, rawdb.Metadata{
		SchemaVersion: rawdb.SchemaVersion,
		EngineTag:     rawdb.EngineTag,
		ChainID:       chainID,
	}); err != nil {
		return nil, wrap(err)
	}

	return block, nil
}
