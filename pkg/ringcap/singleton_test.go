package ringcap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingletonLifecycle(t *testing.T) {
	t.Cleanup(Destroy)

	if GetState() != StateDisabled {
		t.Fatalf("GetState before Init = %v, want Disabled", GetState())
	}
	if err := Store(PacketHeader{}, nil); err != ErrNotInitialised {
		t.Fatalf("Store before Init = %v, want ErrNotInitialised", err)
	}

	require.NoError(t, Init(&Config{MaxMemoryBytes: 1 << 20, DurationSec: 30, PCAPDir: t.TempDir(), AppName: "singleton-test"}))
	require.NoError(t, Enable())

	hdr, data := pkt(1, 10)
	require.NoError(t, Store(hdr, data))

	stats, err := GetStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.TotalPackets)

	Destroy()
	assert.Equal(t, StateDisabled, GetState())
}

func TestSingletonSetConfigMemoryChangeReinits(t *testing.T) {
	t.Cleanup(Destroy)

	require.NoError(t, Init(&Config{MaxMemoryBytes: 1 << 20, DurationSec: 30, PCAPDir: t.TempDir(), AppName: "singleton-test"}))
	require.NoError(t, Enable())
	hdr, data := pkt(1, 10)
	require.NoError(t, Store(hdr, data))

	require.NoError(t, SetConfig(Config{MaxMemoryBytes: 2 << 20}))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, uint64(2<<20), cfg.MaxMemoryBytes)

	stats, err := GetStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.TotalPackets, "reinit via MaxMemoryBytes change should reset counters")
}
