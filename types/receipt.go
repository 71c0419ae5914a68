package types

import "github.com/ethrex/ethrex-state/rlp"

// Receipt records the outcome of one transaction, trimmed to the fields a
// storage layer needs to answer get_receipts: whether it succeeded, the
// cumulative gas counter used for binary-search-style gas estimation
// elsewhere in the stack, and the transaction it belongs to. Logs, the
// bloom filter, and the blob/calldata gas accounting the teacher's
// Receipt carries are EVM-execution details this module never inspects.
type Receipt struct {
	Status            uint64
	CumulativeGasUsed uint64
	TxHash            Hash
	GasUsed           uint64
}

// Succeeded reports whether the transaction's execution succeeded,
// matching the post-Byzantium status-code convention (1 = success).
func (r *Receipt) Succeeded() bool { return r.Status == 1 }

// EncodeRLP implements rlp.Encoder.
func (r *Receipt) EncodeRLP() ([]byte, error) {
	statusEnc, err := rlp.EncodeToBytes(r.Status)
	if err != nil {
		return nil, err
	}
	cumEnc, err := rlp.EncodeToBytes(r.CumulativeGasUsed)
	if err != nil {
		return nil, err
	}
	txEnc, err := rlp.EncodeToBytes(r.TxHash)
	if err != nil {
		return nil, err
	}
	gasEnc, err := rlp.EncodeToBytes(r.GasUsed)
	if err != nil {
		return nil, err
	}
	payload := append(append(append(statusEnc, cumEnc...), txEnc...), gasEnc...)
	return rlp.WrapList(payload), nil
}

// DecodeRLP implements rlp.Decoder.
func (r *Receipt) DecodeRLP(data []byte) error {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return err
	}
	status, err := s.Uint64()
	if err != nil {
		return err
	}
	cum, err := s.Uint64()
	if err != nil {
		return err
	}
	txHashBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	gasUsed, err := s.Uint64()
	if err != nil {
		return err
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	r.Status = status
	r.CumulativeGasUsed = cum
	r.TxHash.SetBytes(txHashBytes)
	r.GasUsed = gasUsed
	return nil
}

// ReceiptList is a block's full receipt set, RLP-encoded as a single list
// so rawdb can store it under one key per spec.md's receipts table.
type ReceiptList []*Receipt

// EncodeRLP implements rlp.Encoder.
func (rs ReceiptList) EncodeRLP() ([]byte, error) {
	var payload []byte
	for _, r := range rs {
		enc, err := r.EncodeRLP()
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return rlp.WrapList(payload), nil
}

// DecodeRLP implements rlp.Decoder.
func (rs *ReceiptList) DecodeRLP(data []byte) error {
	items, err := rlp.SplitList(data)
	if err != nil {
		return err
	}
	out := make(ReceiptList, len(items))
	for i, item := range items {
		r := &Receipt{}
		if err := r.DecodeRLP(item); err != nil {
			return err
		}
		out[i] = r
	}
	*rs = out
	return nil
}
