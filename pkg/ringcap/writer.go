package ringcap

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

// selectedPacket is a buffered copy of one in-window descriptor's payload,
// captured while the fast lock is held so the file write itself can happen
// without it (spec §4.3, §5's permitted split).
type selectedPacket struct {
	ts      Timestamp
	caplen  uint32
	wirelen uint32
	payload []byte
}

// WriteFile is the snapshot writer (spec §4.3). It is only valid when the
// current state is Triggered; it atomically transitions to Writing, selects
// every descriptor whose timestamp falls in the inclusive
// [trigger-pre, trigger+post] window, writes them to a new pcap file under
// PCAPDir, and always returns to Recording — on success or failure.
func (b *Buffer) WriteFile() (WriteResult, error) {
	b.slowMu.Lock()
	defer b.slowMu.Unlock()

	if err := b.lc.beginWrite(); err != nil {
		return WriteResult{}, err
	}
	// Whatever happens below, Writing must end back in Recording (spec §4.1,
	// §7: "A failed writer returns the core to Recording").
	defer b.lc.endWrite()

	trigger := b.lc.trigger
	windowStart := trigger.TriggerTime.Seconds() - float64(b.cfg.PreTriggerSec)
	windowEnd := trigger.TriggerTime.Seconds() + float64(b.cfg.PostTriggerSec)

	selected := b.selectWindow(windowStart, windowEnd)

	dir := b.cfg.PCAPDir
	filename := fmt.Sprintf("capture_%d.pcap", trigger.TriggerTime.Sec)
	path := filepath.Join(dir, filename)

	result, err := writeSnapshot(path, b.cfg.DatalinkType, b.cfg.Snaplen, selected)
	if err != nil {
		b.log.WithError(err).WithField("path", path).Warn("ringcap: snapshot write failed")
		return WriteResult{}, fmt.Errorf("%w: %v", ErrIO, err)
	}

	result.DurationSec = b.cfg.PreTriggerSec + b.cfg.PostTriggerSec
	b.log.WithFields(logrus.Fields{
		"path":    result.Filepath,
		"packets": result.PacketCount,
		"bytes":   result.FileSize,
	}).Info("ringcap: snapshot written")
	return result, nil
}

// selectWindow enumerates the ring under the fast lock and copies out the
// descriptors (and their payload bytes) that fall within [start, end]
// inclusive. Runs while holding the fast lock to snapshot the ring
// consistently against the concurrently-appending store path (spec §4.3,
// §5).
func (b *Buffer) selectWindow(start, end float64) []selectedPacket {
	b.fastMu.Lock()
	defer b.fastMu.Unlock()

	var selected []selectedPacket
	if b.ring == nil {
		return selected
	}
	b.ring.forEach(func(d descriptor, payload []byte) {
		ts := d.timestamp.Seconds()
		if ts < start || ts > end {
			return
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		selected = append(selected, selectedPacket{
			ts:      d.timestamp,
			caplen:  d.caplen,
			wirelen: d.wirelen,
			payload: cp,
		})
	})
	return selected
}

// writeSnapshot creates path, writes a pcap file header with the given
// datalink type and snaplen, then one record per selected packet, in order.
// If the file cannot be created, no file is left behind and an error is
// returned (spec §4.3, §7: "If the file cannot be created, returns to
// Recording, reports failure, leaves stats untouched").
func writeSnapshot(path string, datalink DatalinkType, snaplen uint32, packets []selectedPacket) (WriteResult, error) {
	f, err := os.Create(path)
	if err != nil {
		return WriteResult{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snaplen, datalink); err != nil {
		return WriteResult{}, fmt.Errorf("write pcap header: %w", err)
	}
	for _, p := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(p.ts.Sec, p.ts.Usec*int64(time.Microsecond)),
			CaptureLength: int(p.caplen),
			Length:        int(p.wirelen),
		}
		if err := w.WritePacket(ci, p.payload); err != nil {
			return WriteResult{}, fmt.Errorf("write packet: %w", err)
		}
	}

	if err := f.Sync(); err != nil {
		return WriteResult{}, fmt.Errorf("sync %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		return WriteResult{}, fmt.Errorf("stat %s: %w", path, err)
	}

	return WriteResult{
		Filepath:    path,
		FileSize:    info.Size(),
		PacketCount: len(packets),
		Success:     true,
	}, nil
}
