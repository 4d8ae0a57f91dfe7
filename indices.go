package swr

import (
	"encoding/binary"

	vk "github.com/goki/vulkan"
)

// indexReader abstracts the index source of a draw: either a linear identity
// source for non-indexed draws, or a view over 8/16/32-bit index storage.
type indexReader interface {
	index(i uint32) uint32
}

// linearIndices is the identity source used when no index buffer is bound.
type linearIndices struct{}

func (linearIndices) index(i uint32) uint32 { return i }

type u8Indices []byte

func (s u8Indices) index(i uint32) uint32 { return uint32(s[i]) }

type u16Indices []byte

func (s u16Indices) index(i uint32) uint32 {
	return uint32(binary.LittleEndian.Uint16(s[2*i:]))
}

type u32Indices []byte

func (s u32Indices) index(i uint32) uint32 {
	return binary.LittleEndian.Uint32(s[4*i:])
}

// assembleBatchIndices produces, for each of count primitives starting at
// primitive offset start, the source-vertex indices the vertex stage needs,
// honoring the provoking-vertex rule for the topology. Slot 0 of each
// primitive receives the provoking vertex.
//
// Point primitives are compacted: one index per slot rather than one
// primitive per row, with the last index repeated three times so SIMD reads
// past the logical end stay in initialized data. For the other topologies
// the caller duplicates the trailing row (see assemblePrimitiveIndices).
func assembleBatchIndices[R indexReader](batch *BatchIndices, topology vk.PrimitiveTopology, provoking ProvokingVertexMode, indices R, start, count uint32) {
	provokeFirst := provoking == ProvokingVertexFirst

	switch topology {
	case vk.PrimitiveTopologyPointList:
		index := start
		flat := 0
		put := func(v uint32) {
			batch[flat/3][flat%3] = v
			flat++
		}
		for i := uint32(0); i < count; i++ {
			put(indices.index(index))
			index++
		}
		// Repeat the last index to allow for SIMD width overrun.
		index--
		for i := 0; i < 3; i++ {
			put(indices.index(index))
		}

	case vk.PrimitiveTopologyLineList:
		index := 2 * start
		for i := uint32(0); i < count; i++ {
			if provokeFirst {
				batch[i][0] = indices.index(index + 0)
				batch[i][1] = indices.index(index + 1)
			} else {
				batch[i][0] = indices.index(index + 1)
				batch[i][1] = indices.index(index + 0)
			}
			batch[i][2] = indices.index(index + 1)
			index += 2
		}

	case vk.PrimitiveTopologyLineStrip:
		index := start
		for i := uint32(0); i < count; i++ {
			if provokeFirst {
				batch[i][0] = indices.index(index + 0)
				batch[i][1] = indices.index(index + 1)
			} else {
				batch[i][0] = indices.index(index + 1)
				batch[i][1] = indices.index(index + 0)
			}
			batch[i][2] = indices.index(index + 1)
			index++
		}

	case vk.PrimitiveTopologyTriangleList:
		index := 3 * start
		for i := uint32(0); i < count; i++ {
			if provokeFirst {
				batch[i][0] = indices.index(index + 0)
				batch[i][1] = indices.index(index + 1)
				batch[i][2] = indices.index(index + 2)
			} else {
				batch[i][0] = indices.index(index + 2)
				batch[i][1] = indices.index(index + 0)
				batch[i][2] = indices.index(index + 1)
			}
			index += 3
		}

	case vk.PrimitiveTopologyTriangleStrip:
		// Winding alternates per output primitive; the two non-provoking
		// slots swap with the parity of the absolute primitive index.
		index := start
		for i := uint32(0); i < count; i++ {
			parity := (start + i) & 1
			if provokeFirst {
				batch[i][0] = indices.index(index + 0)
				batch[i][1] = indices.index(index + 1 + parity)
				batch[i][2] = indices.index(index + 1 + (parity ^ 1))
			} else {
				batch[i][0] = indices.index(index + 2)
				batch[i][1] = indices.index(index + 0 + parity)
				batch[i][2] = indices.index(index + 0 + (parity ^ 1))
			}
			index++
		}

	case vk.PrimitiveTopologyTriangleFan:
		// Vertex 0 is fixed; the rest walk the fan in pairs.
		index := start + 1
		for i := uint32(0); i < count; i++ {
			if provokeFirst {
				batch[i][0] = indices.index(index + 0)
				batch[i][1] = indices.index(index + 1)
				batch[i][2] = indices.index(0)
			} else {
				batch[i][2] = indices.index(index + 0)
				batch[i][0] = indices.index(index + 1)
				batch[i][1] = indices.index(0)
			}
			index++
		}

	default:
		unsupported("primitive topology: %d", int32(topology))
	}
}

// assemblePrimitiveIndices assembles the index triples for one batch,
// selecting the index source by buffer presence and element width, then
// duplicates the last row into the trailing overrun slot for non-point
// topologies (point assembly handles its own overrun due to compaction).
func assemblePrimitiveIndices(batch *BatchIndices, indexBuffer []byte, indexType vk.IndexType, start, count uint32, topology vk.PrimitiveTopology, provoking ProvokingVertexMode) {
	if indexBuffer == nil {
		assembleBatchIndices(batch, topology, provoking, linearIndices{}, start, count)
	} else {
		switch indexType {
		case vk.IndexTypeUint8:
			assembleBatchIndices(batch, topology, provoking, u8Indices(indexBuffer), start, count)
		case vk.IndexTypeUint16:
			assembleBatchIndices(batch, topology, provoking, u16Indices(indexBuffer), start, count)
		case vk.IndexTypeUint32:
			assembleBatchIndices(batch, topology, provoking, u32Indices(indexBuffer), start, count)
		default:
			unsupported("index type: %d", int32(indexType))
		}
	}

	if topology != vk.PrimitiveTopologyPointList {
		// Repeat the last index to allow for SIMD width overrun.
		last := batch[count-1][2]
		batch[count][0] = last
		batch[count][1] = last
		batch[count][2] = last
	}
}
