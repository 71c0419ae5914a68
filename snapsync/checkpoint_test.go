package snapsync

import (
	"testing"

	"github.com/ethrex/ethrex-state/rawdb"
	"github.com/ethrex/ethrex-state/types"
)

func TestCheckpointRLPRoundTrip(t *testing.T) {
	cp := &Checkpoint{
		PivotNumber:   1000,
		PivotRoot:     types.HexToHash("0xaaaa"),
		AccountOrigin: types.HexToHash("0xbbbb"),
		AccountsDone:  true,
		PendingStorage: []types.Hash{
			types.HexToHash("0x1111"),
			types.HexToHash("0x2222"),
		},
		PendingCode: []types.Hash{
			types.HexToHash("0x3333"),
		},
	}

	enc, err := cp.EncodeRLP()
	if err != nil {
		t.Fatalf("EncodeRLP: %v", err)
	}

	decoded := &Checkpoint{}
	if err := decoded.DecodeRLP(enc); err != nil {
		t.Fatalf("DecodeRLP: %v", err)
	}

	if decoded.PivotNumber != cp.PivotNumber {
		t.Errorf("PivotNumber: got %d want %d", decoded.PivotNumber, cp.PivotNumber)
	}
	if decoded.PivotRoot != cp.PivotRoot {
		t.Errorf("PivotRoot: got %x want %x", decoded.PivotRoot, cp.PivotRoot)
	}
	if decoded.AccountOrigin != cp.AccountOrigin {
		t.Errorf("AccountOrigin: got %x want %x", decoded.AccountOrigin, cp.AccountOrigin)
	}
	if decoded.AccountsDone != cp.AccountsDone {
		t.Errorf("AccountsDone: got %v want %v", decoded.AccountsDone, cp.AccountsDone)
	}
	if len(decoded.PendingStorage) != len(cp.PendingStorage) {
		t.Fatalf("PendingStorage length: got %d want %d", len(decoded.PendingStorage), len(cp.PendingStorage))
	}
	for i := range cp.PendingStorage {
		if decoded.PendingStorage[i] != cp.PendingStorage[i] {
			t.Errorf("PendingStorage[%d]: got %x want %x", i, decoded.PendingStorage[i], cp.PendingStorage[i])
		}
	}
	if len(decoded.PendingCode) != len(cp.PendingCode) {
		t.Fatalf("PendingCode length: got %d want %d", len(decoded.PendingCode), len(cp.PendingCode))
	}
	for i := range cp.PendingCode {
		if decoded.PendingCode[i] != cp.PendingCode[i] {
			t.Errorf("PendingCode[%d]: got %x want %x", i, decoded.PendingCode[i], cp.PendingCode[i])
		}
	}
}

func TestCheckpointRLPRoundTripEmptyQueues(t *testing.T) {
	cp := &Checkpoint{PivotNumber: 1, PivotRoot: types.HexToHash("0xaa")}
	enc, err := cp.EncodeRLP()
	if err != nil {
		t.Fatalf("EncodeRLP: %v", err)
	}
	decoded := &Checkpoint{}
	if err := decoded.DecodeRLP(enc); err != nil {
		t.Fatalf("DecodeRLP: %v", err)
	}
	if len(decoded.PendingStorage) != 0 || len(decoded.PendingCode) != 0 {
		t.Errorf("expected empty queues, got storage=%d code=%d", len(decoded.PendingStorage), len(decoded.PendingCode))
	}
	if decoded.AccountsDone {
		t.Errorf("expected AccountsDone false")
	}
}

func TestSaveLoadClearCheckpoint(t *testing.T) {
	db := rawdb.NewMemoryDB()

	if cp, err := LoadCheckpoint(db); err != nil || cp != nil {
		t.Fatalf("expected no checkpoint, got %+v err=%v", cp, err)
	}

	cp := &Checkpoint{PivotNumber: 42, PivotRoot: types.HexToHash("0xcafe"), AccountOrigin: types.HexToHash("0x01")}
	if err := SaveCheckpoint(db, cp); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	loaded, err := LoadCheckpoint(db)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if loaded == nil || loaded.PivotNumber != 42 || loaded.PivotRoot != cp.PivotRoot {
		t.Fatalf("LoadCheckpoint mismatch: %+v", loaded)
	}

	if err := ClearCheckpoint(db); err != nil {
		t.Fatalf("ClearCheckpoint: %v", err)
	}
	if cp, err := LoadCheckpoint(db); err != nil || cp != nil {
		t.Fatalf("expected no checkpoint after clear, got %+v err=%v", cp, err)
	}
}
