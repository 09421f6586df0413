package ringcap

import "github.com/packetvault/ringcap/internal/sysmeminfo"

// defaultMemoryProbe backs queryAvailableMemory for production use; tests
// substitute queryAvailableMemory directly to avoid depending on host state.
func defaultMemoryProbe() (uint64, error) {
	return sysmeminfo.MemAvailableBytes()
}
