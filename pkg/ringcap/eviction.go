package ringcap

// evictTimeExpired drops descriptors from the head while they are strictly
// older than packetTs-durationSec. This is non-forced eviction: it never
// increments droppedPackets (spec §4.4's "does not increment
// dropped_packets"). Returns the number of bytes freed from current_memory.
func (r *ring) evictTimeExpired(packetTs Timestamp, durationSec uint32) (freedBytes uint64, evicted int) {
	cutoff := packetTs.Seconds() - float64(durationSec)
	for !r.empty() {
		h := r.head()
		if h.timestamp.Seconds() >= cutoff {
			break
		}
		freedBytes += uint64(r.dropHead())
		evicted++
	}
	return freedBytes, evicted
}

// evictForBudget drops descriptors from the head while accepting caplen more
// bytes would exceed maxMemoryBytes, given currentMemory already committed.
// This is forced eviction: every drop here must be counted in
// dropped_packets by the caller (spec §4.4).
func (r *ring) evictForBudget(currentMemory uint64, caplen uint32, maxMemoryBytes uint64) (freedBytes uint64, evicted int) {
	for currentMemory-freedBytes+uint64(caplen) > maxMemoryBytes && !r.empty() {
		freed := r.dropHead()
		freedBytes += uint64(freed)
		evicted++
	}
	return freedBytes, evicted
}

// evictForCapacity drops the single oldest descriptor if the ring is already
// at full descriptor capacity (spec §4.2 step 4). Forced eviction.
func (r *ring) evictForCapacity() (freedBytes uint64, evicted int) {
	if r.full() {
		freedBytes = uint64(r.dropHead())
		evicted = 1
	}
	return freedBytes, evicted
}

// evictForSpace drops descriptors until the ring is empty, to reclaim
// contiguous tail space for the data pool (spec §4.2 step 5). Forced
// eviction. Resets the data cursor to 0 once empty, per the
// wrap-by-full-flush discipline (spec §3, §9 Design Notes).
func (r *ring) evictForSpace(caplen uint32) (freedBytes uint64, evicted int) {
	for r.tailFreeSpace() < caplen && !r.empty() {
		freedBytes += uint64(r.dropHead())
		evicted++
	}
	if r.tailFreeSpace() < caplen && r.empty() {
		r.resetDataCursor()
	}
	return freedBytes, evicted
}
