package ringcap

import "testing"

func ts(sec int64) Timestamp { return Timestamp{Sec: sec} }

func TestRingAppendAndDropHead(t *testing.T) {
	r := newRing(4, 64)
	if !r.empty() {
		t.Fatalf("new ring should be empty")
	}

	r.append(ts(1), 10, 10, make([]byte, 10))
	r.append(ts(2), 10, 10, make([]byte, 10))

	if r.entryCount != 2 {
		t.Fatalf("entryCount = %d, want 2", r.entryCount)
	}
	if r.head().timestamp != ts(1) {
		t.Fatalf("head ts = %v, want 1", r.head().timestamp)
	}

	freed := r.dropHead()
	if freed != 10 {
		t.Fatalf("dropHead freed = %d, want 10", freed)
	}
	if r.entryCount != 1 {
		t.Fatalf("entryCount after drop = %d, want 1", r.entryCount)
	}
	if r.head().timestamp != ts(2) {
		t.Fatalf("head ts after drop = %v, want 2", r.head().timestamp)
	}
}

func TestRingDropToEmptyNormalizesIndices(t *testing.T) {
	r := newRing(4, 64)
	r.append(ts(1), 5, 5, make([]byte, 5))
	r.dropHead()
	if !r.empty() {
		t.Fatalf("ring should be empty")
	}
	if r.writeIdx != r.readIdx {
		t.Fatalf("writeIdx=%d readIdx=%d, want equal when empty", r.writeIdx, r.readIdx)
	}
}

func TestRingWrapsDescriptorIndices(t *testing.T) {
	r := newRing(2, 64)
	r.append(ts(1), 1, 1, []byte{0xAA})
	r.append(ts(2), 1, 1, []byte{0xBB})
	if !r.full() {
		t.Fatalf("ring should be full at capacity")
	}
	r.dropHead()
	r.append(ts(3), 1, 1, []byte{0xCC})

	var got []int64
	r.forEach(func(d descriptor, payload []byte) {
		got = append(got, d.timestamp.Sec)
	})
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("forEach order = %v, want [2 3]", got)
	}
}

func TestDataPoolLinearAppendAndWrapReset(t *testing.T) {
	r := newRing(10, 16)
	r.append(ts(1), 8, 8, make([]byte, 8))
	r.append(ts(2), 8, 8, make([]byte, 8))
	if r.tailFreeSpace() != 0 {
		t.Fatalf("tailFreeSpace = %d, want 0", r.tailFreeSpace())
	}

	// Not enough tail space for a 4-byte packet: evictForSpace must drain the
	// whole ring and reset the cursor (spec §3/§4.2 step 5 wrap-by-full-flush).
	freed, evicted := r.evictForSpace(4)
	if evicted != 2 {
		t.Fatalf("evicted = %d, want 2", evicted)
	}
	if freed != 16 {
		t.Fatalf("freed = %d, want 16", freed)
	}
	if r.dataWritePos != 0 {
		t.Fatalf("dataWritePos = %d, want 0 after wrap reset", r.dataWritePos)
	}
	if r.tailFreeSpace() != 16 {
		t.Fatalf("tailFreeSpace after reset = %d, want 16", r.tailFreeSpace())
	}
}

func TestEvictForBudgetStopsAsSoonAsUnderBudget(t *testing.T) {
	r := newRing(10, 1024)
	for i := int64(0); i < 5; i++ {
		r.append(ts(i), 100, 100, make([]byte, 100))
	}
	// currentMemory=500, maxMemoryBytes=450, incoming caplen=100: evicting
	// the two oldest entries brings (500-200)+100=400<=450, so the loop
	// must stop there rather than draining the whole ring.
	freed, evicted := r.evictForBudget(500, 100, 450)
	if evicted != 2 {
		t.Fatalf("evicted = %d, want 2 (evictForBudget must stop once under budget, not drain the ring)", evicted)
	}
	if freed != 200 {
		t.Fatalf("freed = %d, want 200", freed)
	}
	if r.entryCount != 3 {
		t.Fatalf("entryCount = %d, want 3 remaining", r.entryCount)
	}
}

func TestEvictForBudgetNoopWhenAlreadyUnderBudget(t *testing.T) {
	r := newRing(10, 1024)
	r.append(ts(1), 100, 100, make([]byte, 100))
	freed, evicted := r.evictForBudget(100, 50, 1000)
	if evicted != 0 || freed != 0 {
		t.Fatalf("evicted=%d freed=%d, want 0,0 when already under budget", evicted, freed)
	}
}

func TestEvictTimeExpiredIsNonForced(t *testing.T) {
	r := newRing(10, 1024)
	for i := int64(0); i < 5; i++ {
		r.append(ts(100+i), 10, 10, make([]byte, 10))
	}
	// duration=10: cutoff = 120-10=110, so every entry (ts 100..104) is evicted.
	freed, evicted := r.evictTimeExpired(ts(120), 10)
	if evicted != 5 {
		t.Fatalf("evicted = %d, want 5 (all older than cutoff)", evicted)
	}
	if freed != 50 {
		t.Fatalf("freed = %d, want 50", freed)
	}
	if !r.empty() {
		t.Fatalf("ring should be empty after evicting all stale entries")
	}
}
