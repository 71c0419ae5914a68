package rlp

// Raw-encoding helpers operate directly on a single item's own byte slice,
// with no surrounding stream or scope stack. They exist for callers (the
// trie package's node decoder, in particular) that already hold exactly
// one item's encoding and want its structure or payload without paying for
// a full Stream.

// IsList reports whether enc's leading byte marks a list (0xc0-0xff).
func IsList(enc []byte) bool {
	return len(enc) > 0 && enc[0] >= 0xc0
}

// SplitList parses enc as a single RLP list and returns the raw encoding of
// each top-level item, unconsumed. It fails if enc is not exactly one
// well-formed list (no trailing bytes allowed).
func SplitList(enc []byte) ([][]byte, error) {
	s := NewStreamFromBytes(enc)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	end := s.limit()
	var items [][]byte
	for s.pos < end {
		start := s.pos
		_, _, err := s.readItem()
		if err != nil {
			return nil, err
		}
		items = append(items, s.data[start:s.pos])
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	if s.pos != len(s.data) {
		return nil, newDecodeError(KindTrailing, "trailing bytes after list")
	}
	return items, nil
}

// DecodeString decodes enc, which must be exactly one RLP string (or the
// single-byte/empty-string special cases), and returns its payload.
func DecodeString(enc []byte) ([]byte, error) {
	s := NewStreamFromBytes(enc)
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if s.pos != len(s.data) {
		return nil, newDecodeError(KindTrailing, "trailing bytes after string")
	}
	return b, nil
}
