package types

import (
	"sync/atomic"

	"golang.org/x/crypto/sha3"

	"github.com/ethrex/ethrex-state/rlp"
)

// Header is a block header trimmed to the fields this module actually
// persists and indexes by: chain linkage, the state commitment, and enough
// bookkeeping to order blocks. Transaction execution and EIP-specific
// fields (base fee, withdrawals root, blob gas, beacon root, and the rest
// of the teacher's 20-plus-field header) belong to the EVM collaborator
// that produces account_updates, not to the storage layer itself.
type Header struct {
	ParentHash Hash
	Number     uint64
	StateRoot  Hash
	Time       uint64
	Extra      []byte

	hash atomic.Pointer[Hash]
}

// Hash computes (and caches) the header's Keccak-256 digest over its
// canonical RLP encoding. Safe for concurrent use.
func (h *Header) Hash() Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	enc, err := h.EncodeRLP()
	if err != nil {
		return Hash{}
	}
	// Hashed here rather than through the crypto package, which imports
	// types and so cannot be imported back.
	d := sha3.NewLegacyKeccak256()
	d.Write(enc)
	computed := BytesToHash(d.Sum(nil))
	h.hash.Store(&computed)
	return computed
}

// EncodeRLP implements rlp.Encoder, producing the canonical
// [parent_hash, number, state_root, time, extra] list.
func (h *Header) EncodeRLP() ([]byte, error) {
	numberEnc, err := rlp.EncodeToBytes(h.Number)
	if err != nil {
		return nil, err
	}
	parentEnc, err := rlp.EncodeToBytes(h.ParentHash)
	if err != nil {
		return nil, err
	}
	rootEnc, err := rlp.EncodeToBytes(h.StateRoot)
	if err != nil {
		return nil, err
	}
	timeEnc, err := rlp.EncodeToBytes(h.Time)
	if err != nil {
		return nil, err
	}
	extraEnc, err := rlp.EncodeToBytes(h.Extra)
	if err != nil {
		return nil, err
	}
	payload := append(append(append(append(parentEnc, numberEnc...), rootEnc...), timeEnc...), extraEnc...)
	return rlp.WrapList(payload), nil
}

// DecodeRLP implements rlp.Decoder, the inverse of EncodeRLP.
func (h *Header) DecodeRLP(data []byte) error {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return err
	}
	parentBytes, err := s.Bytes()
	if err != nil {
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
	t, err := s.Uint64()
	if err != nil {
		return err
	}
	extra, err := s.Bytes()
	if err != nil {
		return err
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	h.ParentHash.SetBytes(parentBytes)
	h.Number = number
	h.StateRoot.SetBytes(rootBytes)
	h.Time = t
	h.Extra = append([]byte(nil), extra...)
	h.hash.Store(nil)
	return nil
}

// Block pairs a Header with its opaque body. BodyData carries whatever
// transaction and withdrawal encoding the EVM collaborator defines; this
// module never decodes it, only stores and returns it byte-for-byte
// alongside the header it belongs to.
type Block struct {
	Header   *Header
	BodyData []byte
}

func (b *Block) Hash() Hash        { return b.Header.Hash() }
func (b *Block) Number() uint64    { return b.Header.Number }
func (b *Block) ParentHash() Hash  { return b.Header.ParentHash }

// EncodeRLP implements rlp.Encoder, producing [header, body_data]. This is
// the wire shape pending (not-yet-applied) blocks are staged in, not the
// final on-disk header/body split rawdb stores once a block is applied.
func (b *Block) EncodeRLP() ([]byte, error) {
	headerEnc, err := b.Header.EncodeRLP()
	if err != nil {
		return nil, err
	}
	bodyEnc, err := rlp.EncodeToBytes(b.BodyData)
	if err != nil {
		return nil, err
	}
	return rlp.WrapList(append(headerEnc, bodyEnc...)), nil
}

// DecodeRLP implements rlp.Decoder, the inverse of EncodeRLP.
func (b *Block) DecodeRLP(data []byte) error {
	items, err := rlp.SplitList(data)
	if err != nil {
		return err
	}
	if len(items) != 2 {
		return rlp.ErrExpectedList
	}
	header := &Header{}
	if err := header.DecodeRLP(items[0]); err != nil {
		return err
	}
	body, err := rlp.DecodeString(items[1])
	if err != nil {
		return err
	}
	b.Header = header
	b.BodyData = append([]byte(nil), body...)
	return nil
}
