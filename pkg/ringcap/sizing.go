package ringcap

import "math"

// entryCapacityFor implements spec §4.5's
// "entry_capacity = max(1000, max_memory_bytes / 64)", mirroring the
// clamped-sizing-arithmetic style of the teacher's afpacket.recomputeSize.
func entryCapacityFor(maxMemoryBytes uint64) uint32 {
	capacity := maxMemoryBytes / bytesPerDescriptorShare
	if capacity < minEntryCapacity {
		capacity = minEntryCapacity
	}
	if capacity > math.MaxUint32 {
		capacity = math.MaxUint32
	}
	return uint32(capacity)
}

// dataPoolSizeFor returns the remaining byte budget for the data pool once
// the descriptor array itself has been sized, per spec §4.5 ("Allocates
// descriptor array and the remaining bytes as the data pool").
func dataPoolSizeFor(maxMemoryBytes uint64, entryCapacity uint32, descriptorSize uint64) uint32 {
	used := uint64(entryCapacity) * descriptorSize
	if used >= maxMemoryBytes {
		return 0
	}
	remaining := maxMemoryBytes - used
	if remaining > math.MaxUint32 {
		remaining = math.MaxUint32
	}
	return uint32(remaining)
}

// clampMemoryMB clamps a candidate MB value to [MinMemoryMB, DefaultMaxMemoryMB].
func clampMemoryMB(mb uint64) uint64 {
	if mb < MinMemoryMB {
		return MinMemoryMB
	}
	if mb > DefaultMaxMemoryMB {
		return DefaultMaxMemoryMB
	}
	return mb
}

// OptimalSize implements spec §4.5's optimal-size estimator:
//
//	1.2 x duration x (bitrate/8/avg_pkt_size) x (avg_pkt_size + descriptor_overhead)
//
// saturated to math.MaxUint32, where descriptor_overhead is a fixed 24-byte
// per-descriptor figure (the same one buffer.go's descriptorSize uses).
func OptimalSize(durationSec uint32, avgPktSize uint32, bitrateBps uint64) uint32 {
	if avgPktSize == 0 {
		return 0
	}
	const descriptorOverhead = 24 // five 32-bit fields (ts sec/usec, caplen, wirelen, offset), rounded up; the Go descriptor struct, with 64-bit timestamp fields, is larger
	packetsPerSec := float64(bitrateBps) / 8.0 / float64(avgPktSize)
	perPacketBytes := float64(avgPktSize) + float64(descriptorOverhead)
	estimate := 1.2 * float64(durationSec) * packetsPerSec * perPacketBytes
	if estimate < 0 {
		return 0
	}
	if estimate > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(estimate)
}
