package snapsync

import (
	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/rlp"
	"github.com/ethrex/ethrex-state/types"
)

// checkpointMetaKey is the chain_meta entry snap sync's resume state is
// stored under, so a restart mid-sync can pick up roughly where it left
// off instead of re-downloading the account range from scratch.
const checkpointMetaKey = "snapsync_checkpoint"

// Checkpoint is the resumable state of an in-progress sync: which pivot it
// targets, how far the account range has progressed, and which accounts
// are still owed a storage/bytecode fetch.
type Checkpoint struct {
	PivotNumber    uint64
	PivotRoot      types.Hash
	AccountOrigin  types.Hash // Next account hash to request.
	AccountsDone   bool
	PendingStorage []types.Hash // Account hashes still needing storage.
	PendingCode    []types.Hash // Code hashes still needing bytecode.
}

// EncodeRLP implements rlp.Encoder.
func (c *Checkpoint) EncodeRLP() ([]byte, error) {
	numberEnc, err := rlp.EncodeToBytes(c.PivotNumber)
	if err != nil {
		return nil, err
	}
	rootEnc, err := rlp.EncodeToBytes(c.PivotRoot)
	if err != nil {
		return nil, err
	}
	originEnc, err := rlp.EncodeToBytes(c.AccountOrigin)
	if err != nil {
		return nil, err
	}
	doneEnc, err := rlp.EncodeToBytes(boolToUint64(c.AccountsDone))
	if err != nil {
		return nil, err
	}
	storageEnc, err := encodeHashList(c.PendingStorage)
	if err != nil {
		return nil, err
	}
	codeEnc, err := encodeHashList(c.PendingCode)
	if err != nil {
		return nil, err
	}
	payload := append(append(append(append(append(numberEnc, rootEnc...), originEnc...), doneEnc...), storageEnc...), codeEnc...)
	return rlp.WrapList(payload), nil
}

// DecodeRLP implements rlp.Decoder.
func (c *Checkpoint) DecodeRLP(data []byte) error {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return err
	}
	number, err := s.Uint64()
	if err != nil {
		return err
	}
	rootBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	originBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	done, err := s.Uint64()
	if err != nil {
		return err
	}
	storage, err := decodeHashList(s)
	if err != nil {
		return err
	}
	code, err := decodeHashList(s)
	if err != nil {
		return err
	}
	if err := s.ListEnd(); err != nil {
		return err
	}

	c.PivotNumber = number
	c.PivotRoot.SetBytes(rootBytes)
	c.AccountOrigin.SetBytes(originBytes)
	c.AccountsDone = done != 0
	c.PendingStorage = storage
	c.PendingCode = code
	return nil
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func encodeHashList(hashes []types.Hash) ([]byte, error) {
	var payload []byte
	for _, h := range hashes {
		enc, err := rlp.EncodeToBytes(h)
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return rlp.WrapList(payload), nil
}

func decodeHashList(s *rlp.Stream) ([]types.Hash, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	var out []types.Hash
	for {
		b, err := s.Bytes()
		if err != nil {
			break
		}
		var h types.Hash
		h.SetBytes(b)
		out = append(out, h)
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveCheckpoint persists cp to db, overwriting any prior checkpoint.
func SaveCheckpoint(db rawdb.Database, cp *Checkpoint) error {
	enc, err := cp.EncodeRLP()
	if err != nil {
		return err
	}
	return rawdb.WriteChainMeta(db, checkpointMetaKey, enc)
}

// LoadCheckpoint reads back a previously saved checkpoint. It returns
// (nil, nil) if none exists.
func LoadCheckpoint(db rawdb.Database) (*Checkpoint, error) {
	enc, err := rawdb.ReadChainMeta(db, checkpointMetaKey)
	if err != nil {
		if err == rawdb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	cp := &Checkpoint{}
	if err := cp.DecodeRLP(enc); err != nil {
		return nil, err
	}
	return cp, nil
}

// ClearCheckpoint removes the persisted checkpoint, called once sync
// completes successfully.
func ClearCheckpoint(db rawdb.Database) error {
	return rawdb.DeleteChainMeta(db, checkpointMetaKey)
}
