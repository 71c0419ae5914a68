package types

import "testing"

func TestReceiptRLPRoundTrip(t *testing.T) {
	r := &Receipt{
		Status:            1,
		CumulativeGasUsed: 21000,
		TxHash:            HexToHash("0xfeed"),
		GasUsed:           21000,
	}

	enc, err := r.EncodeRLP()
	if err != nil {
		t.Fatalf("EncodeRLP: %v", err)
	}

	decoded := &Receipt{}
	if err := decoded.DecodeRLP(enc); err != nil {
		t.Fatalf("DecodeRLP: %v", err)
	}
	if decoded.Status != r.Status {
		t.Errorf("Status = %d, want %d", decoded.Status, r.Status)
	}
	if decoded.CumulativeGasUsed != r.CumulativeGasUsed {
		t.Errorf("CumulativeGasUsed = %d, want %d", decoded.CumulativeGasUsed, r.CumulativeGasUsed)
	}
	if decoded.TxHash != r.TxHash {
		t.Errorf("TxHash = %x, want %x", decoded.TxHash, r.TxHash)
	}
	if decoded.GasUsed != r.GasUsed {
		t.Errorf("GasUsed = %d, want %d", decoded.GasUsed, r.GasUsed)
	}
	if !decoded.Succeeded() {
		t.Error("expected decoded receipt to report success")
	}
}

func TestReceiptFailedStatus(t *testing.T) {
	r := &Receipt{Status: 0, GasUsed: 50000}
	if r.Succeeded() {
		t.Error("status 0 should not report success")
	}
}

func TestReceiptListRLPRoundTrip(t *testing.T) {
	list := ReceiptList{
		{Status: 1, CumulativeGasUsed: 21000, TxHash: HexToHash("0x1"), GasUsed: 21000},
		{Status: 0, CumulativeGasUsed: 71000, TxHash: HexToHash("0x2"), GasUsed: 50000},
	}

	enc, err := list.EncodeRLP()
	if err != nil {
		t.Fatalf("EncodeRLP: %v", err)
	}

	var decoded ReceiptList
	if err := decoded.DecodeRLP(enc); err != nil {
		t.Fatalf("DecodeRLP: %v", err)
	}
	if len(decoded) != len(list) {
		t.Fatalf("len = %d, want %d", len(decoded), len(list))
	}
	for i := range list {
		if decoded[i].Status != list[i].Status || decoded[i].TxHash != list[i].TxHash || decoded[i].GasUsed != list[i].GasUsed {
			t.Errorf("receipt %d = %+v, want %+v", i, decoded[i], list[i])
		}
	}
}

func TestEmptyReceiptListRLPRoundTrip(t *testing.T) {
	var list ReceiptList
	enc, err := list.EncodeRLP()
	if err != nil {
		t.Fatalf("EncodeRLP: %v", err)
	}

	var decoded ReceiptList
	if err := decoded.DecodeRLP(enc); err != nil {
		t.Fatalf("DecodeRLP: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("len = %d, want 0", len(decoded))
	}
}
