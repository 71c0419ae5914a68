package rlp

import (
	"bytes"
	"io"
	"reflect"

	"github.com/holiman/uint256"
)

// Kind is the coarse RLP value shape: a single byte, a string, or a list.
type Kind int

const (
	KindByte Kind = iota
	KindStr
	KindList
)

// Decoder lets a type decode its own canonical RLP representation from a
// byte-oriented stream. types.Account, types.Header, types.Block,
// types.Receipt and snapsync.Checkpoint implement it; other structs rely
// on the struct-reflection path below instead.
type Decoder interface {
	DecodeRLP(data []byte) error
}

// Decode reads one RLP value from r into val, which must be a pointer.
func Decode(r io.Reader, val interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return DecodeBytes(data, val)
}

// DecodeBytes decodes the RLP value encoded in b into val, which must be a
// pointer. Trailing bytes after a complete, well-formed value are rejected
// per the codec's strict-decoding contract.
func DecodeBytes(b []byte, val interface{}) error {
	if dec, ok := val.(Decoder); ok {
		return dec.DecodeRLP(b)
	}
	s := newByteStream(b)
	if err := s.decodeValue(reflect.ValueOf(val)); err != nil {
		return err
	}
	if s.pos != len(s.data) {
		return newDecodeError(KindTrailing, "trailing bytes after value")
	}
	return nil
}

// Stream provides streaming, scope-aware access to RLP-encoded bytes: List
// enters a list scope, ListEnd verifies it was fully consumed.
type Stream struct {
	data  []byte
	pos   int
	stack []listFrame
}

type listFrame struct{ end int }

func NewStream(r io.Reader) *Stream {
	data, _ := io.ReadAll(r)
	return newByteStream(data)
}

// NewStreamFromBytes creates a Stream directly over an in-memory buffer,
// avoiding an io.Reader round-trip for callers (custom Decoder
// implementations) that already hold the full encoding.
func NewStreamFromBytes(data []byte) *Stream { return newByteStream(data) }

func newByteStream(data []byte) *Stream { return &Stream{data: data} }

func (s *Stream) limit() int {
	if len(s.stack) > 0 {
		return s.stack[len(s.stack)-1].end
	}
	return len(s.data)
}

// Kind reports the type and content size of the next value without
// consuming it.
func (s *Stream) Kind() (Kind, uint64, error) {
	lim := s.limit()
	if s.pos >= lim {
		return 0, 0, io.EOF
	}
	prefix := s.data[s.pos]
	switch {
	case prefix <= 0x7f:
		return KindByte, 1, nil
	case prefix <= 0xb7:
		return KindStr, uint64(prefix - 0x80), nil
	case prefix <= 0xbf:
		lenOfLen := int(prefix - 0xb7)
		if s.pos+1+lenOfLen > lim {
			return 0, 0, io.ErrUnexpectedEOF
		}
		return KindStr, readBigEndian(s.data[s.pos+1 : s.pos+1+lenOfLen]), nil
	case prefix <= 0xf7:
		return KindList, uint64(prefix - 0xc0), nil
	default:
		lenOfLen := int(prefix - 0xf7)
		if s.pos+1+lenOfLen > lim {
			return 0, 0, io.ErrUnexpectedEOF
		}
		return KindList, readBigEndian(s.data[s.pos+1 : s.pos+1+lenOfLen]), nil
	}
}

// readItem consumes one complete RLP item and returns its payload (for
// strings) or full encoding (for lists, to support inline-node decoding).
func (s *Stream) readItem() (kind Kind, payload []byte, err error) {
	lim := s.limit()
	if s.pos >= lim {
		return 0, nil, io.EOF
	}
	prefix := s.data[s.pos]

	switch {
	case prefix <= 0x7f:
		payload = s.data[s.pos : s.pos+1]
		s.pos++
		return KindByte, payload, nil

	case prefix == 0x80:
		s.pos++
		return KindStr, nil, nil

	case prefix <= 0xb7:
		size := int(prefix - 0x80)
		start := s.pos + 1
		end := start + size
		if end > lim {
			return 0, nil, io.ErrUnexpectedEOF
		}
		if size == 1 && s.data[start] <= 0x7f {
			return 0, nil, newDecodeError(KindMalformed, "non-canonical single byte string")
		}
		payload = s.data[start:end]
		s.pos = end
		return KindStr, payload, nil

	case prefix <= 0xbf:
		lenOfLen := int(prefix - 0xb7)
		if s.pos+1+lenOfLen > lim {
			return 0, nil, io.ErrUnexpectedEOF
		}
		sizeBytes := s.data[s.pos+1 : s.pos+1+lenOfLen]
		if sizeBytes[0] == 0 {
			return 0, nil, newDecodeError(KindMalformed, "non-canonical length prefix")
		}
		size := int(readBigEndian(sizeBytes))
		if size <= 55 {
			return 0, nil, newDecodeError(KindMalformed, "non-canonical short-form length")
		}
		start := s.pos + 1 + lenOfLen
		end := start + size
		if end > lim {
			return 0, nil, io.ErrUnexpectedEOF
		}
		payload = s.data[start:end]
		s.pos = end
		return KindStr, payload, nil

	case prefix <= 0xf7:
		size := int(prefix - 0xc0)
		end := s.pos + 1 + size
		if end > lim {
			return 0, nil, io.ErrUnexpectedEOF
		}
		payload = s.data[s.pos:end]
		s.pos = end
		return KindList, payload, nil

	default:
		lenOfLen := int(prefix - 0xf7)
		if s.pos+1+lenOfLen > lim {
			return 0, nil, io.ErrUnexpectedEOF
		}
		sizeBytes := s.data[s.pos+1 : s.pos+1+lenOfLen]
		if sizeBytes[0] == 0 {
			return 0, nil, newDecodeError(KindMalformed, "non-canonical length prefix")
		}
		size := int(readBigEndian(sizeBytes))
		if size <= 55 {
			return 0, nil, newDecodeError(KindMalformed, "non-canonical long-form length")
		}
		end := s.pos + 1 + lenOfLen + size
		if end > lim {
			return 0, nil, io.ErrUnexpectedEOF
		}
		payload = s.data[s.pos:end]
		s.pos = end
		return KindList, payload, nil
	}
}

// Bytes reads an RLP string value.
func (s *Stream) Bytes() ([]byte, error) {
	kind, payload, err := s.readItem()
	if err != nil {
		return nil, err
	}
	if kind == KindList {
		return nil, ErrExpectedString
	}
	return payload, nil
}

// List enters a list scope and returns its payload byte length.
func (s *Stream) List() (uint64, error) {
	lim := s.limit()
	if s.pos >= lim {
		return 0, io.EOF
	}
	prefix := s.data[s.pos]
	var start, end int
	switch {
	case prefix >= 0xc0 && prefix <= 0xf7:
		size := int(prefix - 0xc0)
		start = s.pos + 1
		end = start + size
	case prefix > 0xf7:
		lenOfLen := int(prefix - 0xf7)
		if s.pos+1+lenOfLen > lim {
			return 0, io.ErrUnexpectedEOF
		}
		sizeBytes := s.data[s.pos+1 : s.pos+1+lenOfLen]
		if sizeBytes[0] == 0 {
			return 0, newDecodeError(KindMalformed, "non-canonical length prefix")
		}
		size := int(readBigEndian(sizeBytes))
		if size <= 55 {
			return 0, newDecodeError(KindMalformed, "non-canonical long-form length")
		}
		start = s.pos + 1 + lenOfLen
		end = start + size
	default:
		return 0, ErrExpectedList
	}
	if end > lim {
		return 0, io.ErrUnexpectedEOF
	}
	s.stack = append(s.stack, listFrame{end: end})
	s.pos = start
	return uint64(end - start), nil
}

// ListEnd closes the current list scope, failing with a trailing-kind
// DecodeError if it was not fully consumed.
func (s *Stream) ListEnd() error {
	if len(s.stack) == 0 {
		return ErrExpectedList
	}
	top := s.stack[len(s.stack)-1]
	if s.pos != top.end {
		return newDecodeError(KindTrailing, "list not fully consumed")
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

// Uint64 reads an RLP-encoded unsigned integer, rejecting non-canonical
// (leading-zero) encodings and values too wide for 64 bits.
func (s *Stream) Uint64() (uint64, error) {
	b, err := s.Bytes()
	if err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) > 8 {
		return 0, newDecodeError(KindOversized, "uint64 overflow")
	}
	if b[0] == 0 {
		return 0, newDecodeError(KindMalformed, "leading zero in integer")
	}
	return readBigEndian(b), nil
}

func readBigEndian(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = (v << 8) | uint64(x)
	}
	return v
}

func (s *Stream) decodeValue(v reflect.Value) error {
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrExpectedString
	}
	return s.decodeInto(v.Elem())
}

var uint256Type = reflect.TypeOf(uint256.Int{})

func (s *Stream) decodeInto(v reflect.Value) error {
	if v.Type() == uint256Type {
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		if len(b) > 1 && b[0] == 0 {
			return newDecodeError(KindMalformed, "leading zero in uint256")
		}
		if len(b) > 32 {
			return newDecodeError(KindOversized, "uint256 overflow")
		}
		var u uint256.Int
		u.SetBytes(b)
		v.Set(reflect.ValueOf(u))
		return nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return s.decodeInto(v.Elem())
	}

	switch v.Kind() {
	case reflect.Bool:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		switch {
		case len(b) == 0:
			v.SetBool(false)
		case len(b) == 1 && b[0] == 0x01:
			v.SetBool(true)
		default:
			return newDecodeError(KindMalformed, "invalid bool encoding")
		}
		return nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		u, err := s.Uint64()
		if err != nil {
			return err
		}
		v.SetUint(u)
		return nil

	case reflect.String:
		b, err := s.Bytes()
		if err != nil {
			return err
		}
		v.SetString(string(b))
		return nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, err := s.Bytes()
			if err != nil {
				return err
			}
			v.SetBytes(bytes.Clone(b))
			return nil
		}
		return s.decodeList(v)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, err := s.Bytes()
			if err != nil {
				return err
			}
			if len(b) > v.Len() {
				return newDecodeError(KindOversized, "fixed-size array overflow")
			}
			for i := 0; i < v.Len(); i++ {
				v.Index(i).SetUint(0)
			}
			off := v.Len() - len(b)
			for i, x := range b {
				v.Index(off + i).SetUint(uint64(x))
			}
			return nil
		}
		return s.decodeList(v)

	case reflect.Struct:
		return s.decodeStruct(v)

	default:
		return ErrExpectedString
	}
}

func (s *Stream) decodeList(v reflect.Value) error {
	if _, err := s.List(); err != nil {
		return err
	}
	i := 0
	for s.pos < s.stack[len(s.stack)-1].end {
		if i >= v.Len() {
			v.Set(reflect.Append(v, reflect.New(v.Type().Elem()).Elem()))
		}
		if err := s.decodeInto(v.Index(i)); err != nil {
			return err
		}
		i++
	}
	return s.ListEnd()
}

func (s *Stream) decodeStruct(v reflect.Value) error {
	if _, err := s.List(); err != nil {
		return err
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if err := s.decodeInto(v.Field(i)); err != nil {
			return err
		}
	}
	return s.ListEnd()
}
