package dex

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// keccak hashes a canonical byteWriter output into a transaction digest.
// Every Digest() method in this package goes through this single helper so
// the hash function used for the wire digest never drifts between tx
// kinds.
func keccak(b []byte) [32]byte {
	return crypto.Keccak256Hash(b)
}

// VARINT encoding: continuation-bit base-128, big-endian byte order, no
// leading zeros. Two
// implementations of this package that encode the same uint64 MUST produce
// identical bytes; this is the classic Bitcoin-style CVarInt, carried
// forward unchanged because the wire format is part of the consensus
// contract.
//
// Each byte holds 7 bits of payload plus a continuation bit (MSB) set on
// every byte except the last one emitted. Groups are produced from the
// low-order end: encoding proceeds by repeatedly peeling off the low 7
// bits and subtracting 1 before shifting, then the collected bytes are
// written out in reverse (most-significant group first).
func encodeVarint(n uint64) []byte {
	var tmp [10]byte // ceil(64/7) = 10
	length := 0
	for {
		if length == 0 {
			tmp[length] = byte(n & 0x7f)
		} else {
			tmp[length] = byte(n&0x7f) | 0x80
		}
		if n <= 0x7f {
			break
		}
		n = (n >> 7) - 1
		length++
	}
	out := make([]byte, length+1)
	for i := 0; i <= length; i++ {
		out[i] = tmp[length-i]
	}
	return out
}

// decodeVarint reads a VARINT from the front of buf and returns the value
// plus the number of bytes consumed.
func decodeVarint(buf []byte) (uint64, int, error) {
	var n uint64
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if n > (1<<57) && i > 8 {
			return 0, 0, fmt.Errorf("varint overflow")
		}
		n = (n << 7) | uint64(b&0x7f)
		if b&0x80 != 0 {
			n++
		} else {
			return n, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("truncated varint")
}

// encodeString writes a VARINT length prefix followed by the raw UTF-8
// bytes.
func encodeString(s string) []byte {
	var buf bytes.Buffer
	buf.Write(encodeVarint(uint64(len(s))))
	buf.WriteString(s)
	return buf.Bytes()
}

// decodeString reads a length-prefixed string from the front of buf and
// returns it plus the number of bytes consumed.
func decodeString(buf []byte) (string, int, error) {
	n, consumed, err := decodeVarint(buf)
	if err != nil {
		return "", 0, fmt.Errorf("string length: %w", err)
	}
	if uint64(len(buf)-consumed) < n {
		return "", 0, fmt.Errorf("truncated string: need %d bytes, have %d", n, len(buf)-consumed)
	}
	end := consumed + int(n)
	return string(buf[consumed:end]), end, nil
}

// byteWriter accumulates the canonical wire/digest encoding of a
// transaction, field by field, in a fixed order.
type byteWriter struct {
	buf bytes.Buffer
}

func (w *byteWriter) varint(n uint64) *byteWriter {
	w.buf.Write(encodeVarint(n))
	return w
}

func (w *byteWriter) u8(b byte) *byteWriter {
	w.buf.WriteByte(b)
	return w
}

func (w *byteWriter) str(s string) *byteWriter {
	w.buf.Write(encodeString(s))
	return w
}

func (w *byteWriter) fixed(b []byte) *byteWriter {
	w.buf.Write(b)
	return w
}

// bytesRaw includes a raw byte sequence (already-encoded sub-message) without
// any length prefix of its own; callers who need one write a varint length
// first.
func (w *byteWriter) bytesRaw(b []byte) *byteWriter {
	w.buf.Write(b)
	return w
}

func (w *byteWriter) Bytes() []byte { return w.buf.Bytes() }

// boolByte renders a bool as the single wire byte Digest/Encode hash for a
// boolean field.
func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
