// Package config loads the daemon's configuration file (YAML, with
// environment-variable overrides) via viper, adapted from the teacher's
// internal/otus/config loader: same SetConfigName/SetEnvPrefix/
// SetEnvKeyReplacer/Unmarshal shape, applied to this repo's own layered
// config (logging + ring capture buffer) instead of the teacher's
// pipes-of-plugins config.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/gopacket/layers"
	"github.com/spf13/viper"

	"github.com/packetvault/ringcap/internal/logging"
	"github.com/packetvault/ringcap/pkg/ringcap"
)

// envPrefix is the environment-variable namespace for overrides, e.g.
// RINGCAP_RING_CAP_DURATION_SEC overrides ring_cap.duration_sec.
const envPrefix = "RINGCAP"

// RawConfig is the on-disk / unmarshalled shape. Memory is in MB and the
// datalink type is a plain int here (mapstructure-friendly); resolve
// translates them to ringcap.Config's byte count and LinkType.
type RawConfig struct {
	Logging logging.Config `mapstructure:"logging"`
	Capture struct {
		MaxMemoryMB    uint64 `mapstructure:"max_memory_mb"`
		DurationSec    uint32 `mapstructure:"duration_sec"`
		PreTriggerSec  uint32 `mapstructure:"pre_trigger_sec"`
		PostTriggerSec uint32 `mapstructure:"post_trigger_sec"`
		DatalinkType   uint32 `mapstructure:"datalink_type"`
		Snaplen        uint32 `mapstructure:"snaplen"`
		PCAPDir        string `mapstructure:"pcap_dir"`
		AppName        string `mapstructure:"app_name"`
	} `mapstructure:"ring_cap"`
}

// AppConfig is the resolved, typed configuration consumed by cmd/ringcapd.
type AppConfig struct {
	Logging logging.Config
	Capture *ringcap.Config // nil means "use buffer defaults" (spec §4.5)
}

// Load reads path (YAML) through viper, applying RINGCAP_-prefixed
// environment overrides (dots/dashes mapped to underscores, matching the
// teacher's SetEnvKeyReplacer convention), and resolves it into an
// AppConfig.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	nameWithoutExt := strings.TrimSuffix(filename, ext)

	v.SetConfigName(nameWithoutExt)
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	// Unmarshal only sees keys viper already knows, so bind every field
	// explicitly: an override then applies even when the file omits the key.
	for _, key := range []string{
		"logging.level", "logging.file_enabled", "logging.filename",
		"logging.max_size_mb", "logging.max_backups", "logging.max_age_days", "logging.compress",
		"ring_cap.max_memory_mb", "ring_cap.duration_sec", "ring_cap.pre_trigger_sec",
		"ring_cap.post_trigger_sec", "ring_cap.datalink_type", "ring_cap.snaplen",
		"ring_cap.pcap_dir", "ring_cap.app_name",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw RawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return resolve(&raw)
}

func resolve(raw *RawConfig) (*AppConfig, error) {
	out := &AppConfig{Logging: raw.Logging}

	c := raw.Capture
	if c.MaxMemoryMB == 0 {
		// No capture section at all: leave Capture nil so ringcap.New uses
		// the available-memory-probed default sizing path (spec §4.5).
		return out, nil
	}

	dl := layers.LinkType(c.DatalinkType)
	if dl == 0 {
		dl = layers.LinkTypeEthernet
	}
	out.Capture = &ringcap.Config{
		MaxMemoryBytes: c.MaxMemoryMB * 1024 * 1024,
		DurationSec:    c.DurationSec,
		PreTriggerSec:  c.PreTriggerSec,
		PostTriggerSec: c.PostTriggerSec,
		DatalinkType:   dl,
		Snaplen:        c.Snaplen,
		PCAPDir:        c.PCAPDir,
		AppName:        c.AppName,
	}
	return out, nil
}
