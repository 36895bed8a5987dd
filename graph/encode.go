package graph

import "encoding/binary"

// PackNeighbors serializes a sequence of vertex identifiers into a
// compact, length-prefixed, endianness-stable buffer (spec §2.2, §4.3).
// A nil or empty slice packs to a 4-byte buffer holding a zero count; UnpackNeighbors
// treats both an absent record and an explicit empty buffer as the
// empty list, per spec §4.3's tolerance note.
func PackNeighbors(ids []uint32) []byte {
	buf := make([]byte, 4+len(ids)*4)
	binary.BigEndian.PutUint32(buf[:4], uint32(len(ids)))
	for i, id := range ids {
		off := 4 + i*4
		binary.BigEndian.PutUint32(buf[off:off+4], id)
	}
	return buf
}

// UnpackNeighbors reverses PackNeighbors. An empty or nil buffer
// decodes to an empty (non-nil) slice.
func UnpackNeighbors(buf []byte) []uint32 {
	if len(buf) < 4 {
		return []uint32{}
	}
	n := binary.BigEndian.Uint32(buf[:4])
	out := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		off := 4 + int(i)*4
		if off+4 > len(buf) {
			break
		}
		out = append(out, binary.BigEndian.Uint32(buf[off:off+4]))
	}
	return out
}

// PackDegreePair encodes a (in_degree, out_degree) record as stored in
// a node row when ReadOptimize is enabled.
func PackDegreePair(in, out uint32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], in)
	binary.BigEndian.PutUint32(buf[4:8], out)
	return buf
}

// UnpackDegreePair decodes a degree-pair record. A buffer shorter than
// 8 bytes (the "empty placeholder" spec §4.2 allows when ReadOptimize
// is off) decodes to (0, 0).
func UnpackDegreePair(buf []byte) (in, out uint32) {
	if len(buf) < 8 {
		return 0, 0
	}
	in = binary.BigEndian.Uint32(buf[0:4])
	out = binary.BigEndian.Uint32(buf[4:8])
	return in, out
}

// PackWeight encodes an optional edge weight. hasWeight distinguishes a
// real zero weight from "no weight stored" (unweighted graphs).
func PackWeight(weight int32, hasWeight bool) []byte {
	buf := make([]byte, 5)
	if hasWeight {
		buf[0] = 1
	}
	binary.BigEndian.PutUint32(buf[1:5], uint32(weight))
	return buf
}

// UnpackWeight reverses PackWeight.
func UnpackWeight(buf []byte) (weight int32, hasWeight bool) {
	if len(buf) < 5 {
		return 0, false
	}
	hasWeight = buf[0] == 1
	weight = int32(binary.BigEndian.Uint32(buf[1:5]))
	return weight, hasWeight
}
