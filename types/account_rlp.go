package types

import (
	"github.com/holiman/uint256"

	"github.com/ethrex/ethrex-state/rlp"
)

// EncodeRLP implements rlp.Encoder, producing the canonical 4-element list
// [nonce, balance, storage_root, code_hash] that the state trie stores as
// an account leaf's value.
func (a *Account) EncodeRLP() ([]byte, error) {
	balance := a.Balance
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	nonceEnc, err := rlp.EncodeToBytes(a.Nonce)
	if err != nil {
		return nil, err
	}
	balanceEnc, err := rlp.EncodeToBytes(balance.Bytes())
	if err != nil {
		return nil, err
	}
	rootEnc, err := rlp.EncodeToBytes(a.StorageRoot)
	if err != nil {
		return nil, err
	}
	codeEnc, err := rlp.EncodeToBytes(a.CodeHash)
	if err != nil {
		return nil, err
	}
	payload := append(append(append(nonceEnc, balanceEnc...), rootEnc...), codeEnc...)
	return rlp.WrapList(payload), nil
}

// DecodeRLP implements rlp.Decoder, the inverse of EncodeRLP.
func (a *Account) DecodeRLP(data []byte) error {
	s := rlp.NewStreamFromBytes(data)
	if _, err := s.List(); err != nil {
		return err
	}
	nonce, err := s.Uint64()
	if err != nil {
		return err
	}
	balanceBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	var root, codeHash Hash
	rootBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	root.SetBytes(rootBytes)
	codeBytes, err := s.Bytes()
	if err != nil {
		return err
	}
	codeHash.SetBytes(codeBytes)
	if err := s.ListEnd(); err != nil {
		return err
	}
	a.Nonce = nonce
	a.Balance = new(uint256.Int).SetBytes(balanceBytes)
	a.StorageRoot = root
	a.CodeHash = codeHash
	return nil
}
