package ringcap

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const descriptorSize = 24 // see OptimalSize's descriptor_overhead comment

// Buffer is the process-wide capture core described in spec §2: ring index,
// data pool, lifecycle controller, store path, eviction engine and
// config/stats facade, all behind one owned value (spec §9 prefers an
// explicit handle over a module-level singleton; see singleton.go for the
// thin compat wrapper).
//
// Lock discipline (spec §5): fastMu ("spin lock" stand-in) guards the ring,
// pool, indices and running counters; it is held only for short,
// non-blocking critical sections. slowMu ("mutex") guards config and the
// trigger/write path and may be held across file I/O. Acquisition order when
// both are needed is always slowMu before fastMu — so the hot path, which
// only ever takes fastMu, must never reach back into slowMu while holding
// it. maxMemoryBytes and durationSec are read on that hot path, so they are
// mirrored in atomics (updated under slowMu, read lock-free) rather than
// read out of cfg under slowMu, the same technique lifecycle.go uses for
// state (spec §9: "readers that only need state may use an atomic").
type Buffer struct {
	fastMu sync.Mutex
	slowMu sync.Mutex

	cfg Config // guarded by slowMu
	lc  *lifecycle

	maxMemoryBytes atomic.Uint64
	durationSec    atomic.Uint32

	ring *ring // guarded by fastMu

	// running counters, guarded by fastMu
	totalPackets   uint64
	totalBytes     uint64
	droppedPackets uint64
	oldestTs       Timestamp
	newestTs       Timestamp
	currentMemory  uint64
	haveOldest     bool

	log *logrus.Logger
}

// New initialises a Buffer. Passing a nil cfg sizes the buffer from 10% of
// available system memory, clamped to [MinMemoryMB, DefaultMaxMemoryMB], and
// applies the remaining defaults, per spec §4.5. Re-initialisation (calling
// New again to replace an existing in-use *Buffer) is not this function's
// concern: see singleton.go for the teardown-then-reinit wrapper spec
// requires for the process-wide control interface.
func New(cfg *Config) (*Buffer, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := ensureDirectory(resolved.PCAPDir); err != nil {
		return nil, fmt.Errorf("ringcap: init: %w", err)
	}

	entryCapacity := entryCapacityFor(resolved.MaxMemoryBytes)
	poolSize := dataPoolSizeFor(resolved.MaxMemoryBytes, entryCapacity, descriptorSize)

	b := &Buffer{
		cfg:  *resolved,
		lc:   newLifecycle(),
		ring: newRing(entryCapacity, poolSize),
		log:  logrus.StandardLogger(),
	}
	b.maxMemoryBytes.Store(resolved.MaxMemoryBytes)
	b.durationSec.Store(resolved.DurationSec)
	return b, nil
}

func resolveConfig(cfg *Config) (*Config, error) {
	var out Config
	if cfg == nil {
		availBytes, err := queryAvailableMemory()
		if err != nil {
			return nil, fmt.Errorf("%w: query available memory: %v", ErrAllocationFailed, err)
		}
		mb := clampMemoryMB((availBytes / (1024 * 1024)) / 10)
		out = Config{
			MaxMemoryBytes: mb * 1024 * 1024,
			DurationSec:    DefaultDurationSec,
			PreTriggerSec:  DefaultPreTriggerSec,
			PostTriggerSec: DefaultPostTriggerSec,
			DatalinkType:   defaultDatalinkType,
			Snaplen:        defaultSnaplen,
			AppName:        "ringcap",
		}
	} else {
		out = *cfg
		if out.MaxMemoryBytes == 0 {
			return nil, fmt.Errorf("%w: MaxMemoryBytes must be > 0", ErrInvalidArgument)
		}
		if out.DurationSec == 0 {
			out.DurationSec = DefaultDurationSec
		}
		if out.Snaplen == 0 {
			out.Snaplen = defaultSnaplen
		}
		if out.AppName == "" {
			out.AppName = "ringcap"
		}
	}
	if out.PCAPDir == "" {
		out.PCAPDir = filepath.Join("/tmp", out.AppName, "pcap")
	}
	return &out, nil
}

// queryAvailableMemory is overridable in tests.
var queryAvailableMemory = func() (uint64, error) {
	return defaultMemoryProbe()
}

// ensureDirectory creates the pcap output directory (and its parent) with
// mode 0755, per spec §6. Calling it twice succeeds both times (spec §8
// idempotence).
func ensureDirectory(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// Close tears the Buffer down: forces Disabled and releases references to
// the ring and pool so they can be garbage collected. There is no
// persistence across restarts (spec §1 Non-goals), so Close has nothing else
// to flush.
func (b *Buffer) Close() error {
	b.slowMu.Lock()
	defer b.slowMu.Unlock()
	b.fastMu.Lock()
	defer b.fastMu.Unlock()

	b.lc.disable()
	b.ring = nil
	return nil
}

// Enable transitions Disabled->Recording (no-op success from Recording).
func (b *Buffer) Enable() error {
	return b.lc.enable()
}

// Disable forces Disabled from any state.
func (b *Buffer) Disable() {
	b.lc.disable()
}

// State returns the current lifecycle state without taking either lock.
func (b *Buffer) State() State {
	return b.lc.get()
}

// Trigger fires a trigger with the given reason at the given packet
// timestamp. It fails unless the current state is Recording (spec §4.1).
// reason is truncated to MaxReasonBytes.
func (b *Buffer) Trigger(reason string, at Timestamp) error {
	b.slowMu.Lock()
	defer b.slowMu.Unlock()
	post := b.cfg.PostTriggerSec
	if err := b.lc.fire(reason, at, post); err != nil {
		return err
	}
	b.log.WithFields(logrus.Fields{"reason": reason, "trigger_time": at.Seconds()}).Info("ringcap: trigger armed")
	return nil
}

// PostTriggerComplete reports whether the post-trigger grace period has
// elapsed (or never applied), per spec §4.1. Pure observer: never
// transitions state.
func (b *Buffer) PostTriggerComplete(now time.Time) bool {
	b.slowMu.Lock()
	post := b.cfg.PostTriggerSec
	b.slowMu.Unlock()
	return b.lc.postTriggerComplete(now, post)
}

// Clear resets all counters, indices and timestamps without changing state
// (spec §4.5, §8 idempotence: calling Clear twice equals calling it once).
func (b *Buffer) Clear() {
	b.fastMu.Lock()
	defer b.fastMu.Unlock()
	entryCapacity := b.ring.capacity
	poolSize := b.ring.poolSize
	b.ring = newRing(entryCapacity, poolSize)
	b.totalPackets = 0
	b.totalBytes = 0
	b.droppedPackets = 0
	b.currentMemory = 0
	b.oldestTs = Timestamp{}
	b.newestTs = Timestamp{}
	b.haveOldest = false
}

// GetConfig returns a copy of the current configuration.
func (b *Buffer) GetConfig() Config {
	b.slowMu.Lock()
	defer b.slowMu.Unlock()
	return b.cfg
}

// Reconfigure updates duration/pre/post/datalink/snaplen in place. A
// non-zero change to MaxMemoryBytes instead tears the instance down and
// reinitialises it (spec §4.5): since Buffer itself cannot replace its own
// identity, that teardown-and-reinit is implemented by the singleton wrapper
// (singleton.go); Reconfigure here rejects a changed MaxMemoryBytes so
// callers reach for the right entry point.
func (b *Buffer) Reconfigure(cfg Config) error {
	b.slowMu.Lock()
	defer b.slowMu.Unlock()
	if cfg.MaxMemoryBytes != 0 && cfg.MaxMemoryBytes != b.cfg.MaxMemoryBytes {
		return fmt.Errorf("%w: MaxMemoryBytes change requires teardown and reinit", ErrStateConflict)
	}
	if cfg.DurationSec != 0 {
		b.cfg.DurationSec = cfg.DurationSec
		b.durationSec.Store(cfg.DurationSec)
	}
	if cfg.PreTriggerSec != 0 {
		b.cfg.PreTriggerSec = cfg.PreTriggerSec
	}
	if cfg.PostTriggerSec != 0 {
		b.cfg.PostTriggerSec = cfg.PostTriggerSec
	}
	if cfg.DatalinkType != 0 {
		b.cfg.DatalinkType = cfg.DatalinkType
	}
	if cfg.Snaplen != 0 {
		b.cfg.Snaplen = cfg.Snaplen
	}
	return nil
}

// SetDatalink updates only the datalink type written into future snapshot
// file headers.
func (b *Buffer) SetDatalink(dl DatalinkType) {
	b.slowMu.Lock()
	defer b.slowMu.Unlock()
	b.cfg.DatalinkType = dl
}

// Stats returns a point-in-time snapshot of buffer statistics (spec §3).
func (b *Buffer) Stats() Stats {
	b.fastMu.Lock()
	defer b.fastMu.Unlock()
	return b.statsLocked()
}

func (b *Buffer) statsLocked() Stats {
	durationSec := b.durationSec.Load()
	pct := uint8(0)
	if durationSec > 0 && b.haveOldest {
		span := b.newestTs.Seconds() - b.oldestTs.Seconds()
		p := 100 * span / float64(durationSec)
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		pct = uint8(p)
	}
	return Stats{
		TotalPackets:   b.totalPackets,
		TotalBytes:     b.totalBytes,
		DroppedPackets: b.droppedPackets,
		OldestTsSec:    b.oldestTs.Sec,
		NewestTsSec:    b.newestTs.Sec,
		CurrentMemory:  b.currentMemory,
		BufferPercent:  pct,
		State:          b.lc.get(),
	}
}

// Store is the hot path: append one packet to the ring if the buffer is
// Recording or Triggered, evicting as needed under the time window and
// memory budget (spec §4.2). It never blocks on I/O and only takes the fast
// lock — maxMemoryBytes/durationSec come from the atomics above, never from
// cfg directly, so Store can never nest slowMu inside fastMu (spec §5, §9).
func (b *Buffer) Store(hdr PacketHeader, data []byte) error {
	if hdr.CapLen > 0 && data == nil {
		return ErrInvalidArgument
	}

	maxMemoryBytes := b.maxMemoryBytes.Load()
	durationSec := b.durationSec.Load()

	b.fastMu.Lock()
	defer b.fastMu.Unlock()

	state := b.lc.get()
	if state != StateRecording && state != StateTriggered {
		// Disabled/Writing: accept silently, no-op (spec §4.1, §4.2 step 1).
		return nil
	}

	if hdr.CapLen > b.ring.poolSize {
		b.droppedPackets++
		return ErrPacketTooLarge
	}

	// Step 2: time eviction (non-forced — never increments dropped_packets).
	freed, n := b.ring.evictTimeExpired(hdr.Timestamp, durationSec)
	b.accountEviction(freed, n, false)

	// Step 3: byte/budget eviction (forced).
	freed, n = b.ring.evictForBudget(b.currentMemory, hdr.CapLen, maxMemoryBytes)
	b.accountEviction(freed, n, true)

	// Step 4: descriptor-capacity eviction (forced).
	freed, n = b.ring.evictForCapacity()
	b.accountEviction(freed, n, true)

	// Step 5: data-pool placement (forced eviction until empty + cursor reset).
	if b.ring.tailFreeSpace() < hdr.CapLen {
		freed, n = b.ring.evictForSpace(hdr.CapLen)
		b.accountEviction(freed, n, true)
		if b.ring.tailFreeSpace() < hdr.CapLen {
			b.droppedPackets++
			return ErrPacketTooLarge
		}
	}

	// Step 6: copy payload and append descriptor.
	b.ring.append(hdr.Timestamp, hdr.CapLen, hdr.WireLen, data)

	// Step 7: update stats.
	b.totalPackets++
	b.totalBytes += uint64(hdr.CapLen)
	b.currentMemory += uint64(hdr.CapLen)
	b.newestTs = hdr.Timestamp
	if !b.haveOldest {
		b.oldestTs = hdr.Timestamp
		b.haveOldest = true
	}
	return nil
}

// accountEviction folds freed bytes and evicted descriptors back out of the
// running counters. total_packets always equals entry_count (spec §8
// invariant), so every eviction — forced or not — decrements it; only forced
// evictions (budget/capacity/space) increment dropped_packets, never
// time-window expiry (spec §4.4, §9 Open Question #2).
func (b *Buffer) accountEviction(freedBytes uint64, count int, forced bool) {
	if count == 0 {
		return
	}
	b.totalBytes -= freedBytes
	b.currentMemory -= freedBytes
	b.totalPackets -= uint64(count)
	if forced {
		b.droppedPackets += uint64(count)
	}
	b.updateOldestLocked()
}

func (b *Buffer) updateOldestLocked() {
	if b.ring.empty() {
		// Open Question #1 (spec §9): on budget eviction that empties the
		// ring, oldest_ts_sec resets to 0, not to the next inserted
		// packet's timestamp. Preserved verbatim.
		b.oldestTs = Timestamp{}
		b.haveOldest = false
		return
	}
	b.oldestTs = b.ring.head().timestamp
}
