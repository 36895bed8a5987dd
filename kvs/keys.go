package kvs

import "encoding/binary"

// IDSize is the encoded width of a node or edge identifier: a 32-bit
// unsigned integer in network byte order, so that badger's
// lexicographic ordering on raw bytes coincides with numeric order.
// Mis-decoding a key is a programmer error, not a runtime-recoverable
// condition, per spec §4.1.
const IDSize = 4

// EncodeID renders a 32-bit identifier as a fixed-width big-endian key
// component.
func EncodeID(id uint32) []byte {
	b := make([]byte, IDSize)
	binary.BigEndian.PutUint32(b, id)
	return b
}

// DecodeID reads a fixed-width big-endian key component back into a
// 32-bit identifier. Panics if buf is shorter than IDSize: a short
// buffer means the caller handed this function a key encoded
// elsewhere, which is the programmer error spec §4.1 calls out.
func DecodeID(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[:IDSize])
}

// EncodeCompositeKey concatenates two 32-bit identifiers, used for the
// (src, dst) keys of the edge table's composite index and of the
// edge-key representation's single table.
func EncodeCompositeKey(a, b uint32) []byte {
	out := make([]byte, IDSize*2)
	binary.BigEndian.PutUint32(out[:IDSize], a)
	binary.BigEndian.PutUint32(out[IDSize:], b)
	return out
}

// DecodeCompositeKey splits a concatenated (a, b) key back into its two
// identifiers.
func DecodeCompositeKey(buf []byte) (a, b uint32) {
	a = binary.BigEndian.Uint32(buf[:IDSize])
	b = binary.BigEndian.Uint32(buf[IDSize : IDSize*2])
	return a, b
}

// WithPrefix prepends a namespace prefix (a Table or Index's KeyPrefix)
// to an already-encoded key body.
func WithPrefix(prefix, body []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(body))
	out = append(out, prefix...)
	out = append(out, body...)
	return out
}
