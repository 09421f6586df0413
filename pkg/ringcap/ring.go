package ringcap

// ring is the fixed-capacity descriptor queue plus the single contiguous data
// pool described in spec §3. It has no locking of its own: callers (buffer.go)
// hold the fast lock around every call.
//
// Data-pool allocation discipline is deliberately a single linear append
// cursor with a hard reset on overflow (evict until empty, then reset to 0).
// There is no interior reclamation, no free list, no compaction.
type ring struct {
	descriptors []descriptor
	capacity    uint32
	writeIdx    uint32
	readIdx     uint32
	entryCount  uint32

	pool         []byte
	poolSize     uint32
	dataWritePos uint32
}

func newRing(entryCapacity uint32, dataPoolSize uint32) *ring {
	return &ring{
		descriptors: make([]descriptor, entryCapacity),
		capacity:    entryCapacity,
		pool:        make([]byte, dataPoolSize),
		poolSize:    dataPoolSize,
	}
}

// empty reports whether the ring currently holds no descriptors.
func (r *ring) empty() bool {
	return r.entryCount == 0
}

// full reports whether the descriptor ring is at capacity.
func (r *ring) full() bool {
	return r.entryCount == r.capacity
}

// head returns the oldest descriptor. Caller must ensure !empty().
func (r *ring) head() *descriptor {
	return &r.descriptors[r.readIdx]
}

// tailFreeSpace returns the contiguous bytes remaining before the pool wraps.
func (r *ring) tailFreeSpace() uint32 {
	return r.poolSize - r.dataWritePos
}

// dropHead evicts the oldest descriptor, advancing readIdx and decrementing
// entryCount; the buffer's running totals are adjusted by the caller. Returns the
// caplen of the evicted descriptor. This is the single "drop head" primitive
// shared by time-expiry and budget eviction (spec §4.4); the forced flag only
// affects the caller's dropped_packets bookkeeping, not ring mechanics.
func (r *ring) dropHead() (caplen uint32) {
	d := r.descriptors[r.readIdx]
	r.readIdx = (r.readIdx + 1) % r.capacity
	r.entryCount--
	if r.entryCount == 0 {
		// Ring is logically empty: normalize write_idx == read_idx, matching
		// the invariant in spec §3.
		r.writeIdx = r.readIdx
	}
	return d.caplen
}

// resetDataCursor rewinds the data pool append cursor to 0. Only valid once
// the ring has been fully drained (spec §4.2 step 5).
func (r *ring) resetDataCursor() {
	r.dataWritePos = 0
}

// append writes caplen bytes from data at the current data cursor and appends
// a new descriptor at writeIdx. Caller must have already ensured there is
// capacity in both the descriptor ring and the data pool tail.
func (r *ring) append(ts Timestamp, caplen, wirelen uint32, data []byte) {
	offset := r.dataWritePos
	if caplen > 0 {
		copy(r.pool[offset:offset+caplen], data[:caplen])
	}
	r.descriptors[r.writeIdx] = descriptor{
		timestamp:  ts,
		caplen:     caplen,
		wirelen:    wirelen,
		dataOffset: offset,
	}
	r.dataWritePos += caplen
	r.writeIdx = (r.writeIdx + 1) % r.capacity
	r.entryCount++
}

// forEach calls fn for every descriptor currently in the ring, in order from
// oldest to newest, along with the payload bytes it references. fn must not
// retain the payload slice past the call (it aliases the pool).
func (r *ring) forEach(fn func(d descriptor, payload []byte)) {
	idx := r.readIdx
	for i := uint32(0); i < r.entryCount; i++ {
		d := r.descriptors[idx]
		fn(d, r.pool[d.dataOffset:d.dataOffset+d.caplen])
		idx = (idx + 1) % r.capacity
	}
}
