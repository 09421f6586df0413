// Package ringcap implements a rolling, memory- and time-bounded packet
// capture buffer with trigger-based snapshot export to pcap files.
//
// The buffer hot path (Store) is meant to be called once per captured
// packet from an external capture loop; it never blocks on I/O. A separate
// control surface (Enable/Disable/Trigger/WriteFile) is meant to be driven
// by an external control plane. Decoding, filtering, multiple concurrent
// sessions, compressed formats, networked delivery and cross-restart
// persistence are explicitly out of scope.
package ringcap

import (
	"errors"
	"time"

	"github.com/google/gopacket/layers"
)

// State is one of the four lifecycle states of a Buffer.
type State uint32

const (
	// StateDisabled is the state after New/Clear's sibling Init and after
	// Disable. Store silently drops packets in this state.
	StateDisabled State = iota
	// StateRecording accepts and retains packets.
	StateRecording
	// StateTriggered accepts and retains packets, with a trigger deadline set.
	StateTriggered
	// StateWriting is entered only by WriteFile for the duration of the
	// snapshot export.
	StateWriting
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "Disabled"
	case StateRecording:
		return "Recording"
	case StateTriggered:
		return "Triggered"
	case StateWriting:
		return "Writing"
	default:
		return "Unknown"
	}
}

// Sentinel error kinds, per spec §7. Wrap with fmt.Errorf("...: %w", ErrX) and
// unwrap with errors.Is.
var (
	ErrNotInitialised   = errors.New("ringcap: not initialised")
	ErrInvalidArgument  = errors.New("ringcap: invalid argument")
	ErrPacketTooLarge   = errors.New("ringcap: packet too large")
	ErrStateConflict    = errors.New("ringcap: state conflict")
	ErrAllocationFailed = errors.New("ringcap: allocation failure")
	ErrIO               = errors.New("ringcap: io failure")
)

// Defaults per spec §6.
const (
	DefaultDurationSec    = 30
	DefaultPreTriggerSec  = 25
	DefaultPostTriggerSec = 5
	DefaultMaxMemoryMB    = 256
	MinMemoryMB           = 16

	MaxReasonBytes   = 256
	MaxFilepathBytes = 256

	minEntryCapacity        = 1000
	bytesPerDescriptorShare = 64 // max_memory_bytes / 64 == entry_capacity floor input
)

// DatalinkType is the numeric link-layer identifier written into a pcap file
// header (spec's "Datalink type"). It is an alias of gopacket/layers.LinkType
// so callers can pass layers.LinkTypeEthernet etc. directly.
type DatalinkType = layers.LinkType

const (
	defaultDatalinkType = layers.LinkTypeEthernet
	// defaultSnaplen stands in for the source's BUFSIZ default (spec §4.5).
	defaultSnaplen = 65535
)

// Config holds the tunables of a Buffer, per spec §3.
type Config struct {
	// MaxMemoryBytes is the total budget for descriptors + data pool.
	MaxMemoryBytes uint64
	// DurationSec is the rolling window: packets older than now-DurationSec
	// (packet-timestamp "now") are evicted.
	DurationSec uint32
	// PreTriggerSec / PostTriggerSec bound the export window around a trigger.
	PreTriggerSec  uint32
	PostTriggerSec uint32
	// DatalinkType is written into the pcap file header.
	DatalinkType DatalinkType
	// Snaplen is the snapshot length recorded in the pcap file header.
	Snaplen uint32

	// PCAPDir is the output directory for snapshot files. Defaults to
	// "/tmp/<AppName>/pcap" when empty.
	PCAPDir string
	// AppName is used only to build the default PCAPDir.
	AppName string
}

// Timestamp is a packet timestamp with second/microsecond components, matching
// the descriptor's on-the-wire granularity.
type Timestamp struct {
	Sec  int64
	Usec int64
}

// Seconds returns the timestamp as a floating point number of seconds.
func (t Timestamp) Seconds() float64 {
	return float64(t.Sec) + float64(t.Usec)/1e6
}

// Before reports whether t is strictly earlier than o.
func (t Timestamp) Before(o Timestamp) bool {
	if t.Sec != o.Sec {
		return t.Sec < o.Sec
	}
	return t.Usec < o.Usec
}

// Sub returns t-o as seconds (can be negative).
func (t Timestamp) Sub(o Timestamp) float64 {
	return t.Seconds() - o.Seconds()
}

func (t Timestamp) toTime() time.Time {
	return time.Unix(t.Sec, t.Usec*int64(time.Microsecond))
}

// PacketHeader describes a packet about to be stored. Caplen must not exceed
// the data pool size; wirelen may legitimately exceed caplen when snaplen
// truncated the capture upstream.
type PacketHeader struct {
	Timestamp Timestamp
	CapLen    uint32
	WireLen   uint32
}

// descriptor is the immutable-once-appended ring entry, per spec §3.
type descriptor struct {
	timestamp  Timestamp
	caplen     uint32
	wirelen    uint32
	dataOffset uint32
}

// Stats is a point-in-time snapshot of buffer statistics, per spec §3.
type Stats struct {
	TotalPackets   uint64
	TotalBytes     uint64
	DroppedPackets uint64
	OldestTsSec    int64
	NewestTsSec    int64
	CurrentMemory  uint64
	BufferPercent  uint8
	State          State
}

// TriggerRecord is set on transition to Triggered and consulted by the writer.
type TriggerRecord struct {
	TriggerTime         Timestamp
	PostTriggerDeadline time.Time
	Reason              string
}

// WriteResult is the outcome of a successful WriteFile call.
type WriteResult struct {
	Filepath    string
	FileSize    int64
	PacketCount int
	DurationSec uint32
	Success     bool
}
