// Command ringcapd is a minimal example harness wiring pkg/ringcap to a
// synthetic packet source and a loopback control surface. It stands in for
// the "external capture loop" and "external control plane" spec.md §1
// treats as collaborators outside the capture core's scope; it is
// deliberately not a CLI framework (see DESIGN.md's "Dropped teacher
// dependencies" for why cobra was not adopted here).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/packetvault/ringcap/internal/config"
	"github.com/packetvault/ringcap/internal/logging"
	"github.com/packetvault/ringcap/pkg/ringcap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; buffer defaults are used if omitted)")
	listenAddr := flag.String("listen", "127.0.0.1:7732", "loopback address for the stats/trigger HTTP endpoint")
	flag.Parse()

	log, buf, err := bootstrap(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("ringcapd: bootstrap failed")
	}
	defer buf.Close()

	if err := buf.Enable(); err != nil {
		log.WithError(err).Fatal("ringcapd: enable failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runPacketGenerator(ctx, buf)
	go serveHTTP(*listenAddr, buf, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP, syscall.SIGUSR1)

	for s := range sig {
		switch s {
		case syscall.SIGUSR1:
			if err := buf.Trigger("signal", nowTimestamp()); err != nil {
				log.WithError(err).Warn("ringcapd: trigger failed")
			} else {
				log.Info("ringcapd: trigger armed via SIGUSR1")
			}
		case syscall.SIGHUP:
			if *configPath == "" {
				log.Warn("ringcapd: SIGHUP reload requested but no config file was given")
				continue
			}
			if err := reload(*configPath, buf); err != nil {
				log.WithError(err).Warn("ringcapd: reload failed")
			} else {
				log.Info("ringcapd: config reloaded")
			}
		case syscall.SIGTERM, syscall.SIGINT:
			log.Info("ringcapd: shutting down")
			buf.Disable()
			return
		}
	}
}

func bootstrap(configPath string) (*logrus.Logger, *ringcap.Buffer, error) {
	var appCfg *config.AppConfig
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		appCfg = loaded
	} else {
		appCfg = &config.AppConfig{}
	}

	log, err := logging.New(appCfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	buf, err := ringcap.New(appCfg.Capture)
	if err != nil {
		return nil, nil, err
	}
	return log, buf, nil
}

// reload re-reads configPath and applies it via Reconfigure. A changed
// MaxMemoryBytes is rejected by Buffer.Reconfigure (spec §4.5 says that case
// needs a full teardown-and-reinit, which only the package-level singleton
// in pkg/ringcap/singleton.go performs); this daemon uses an owned *Buffer,
// so it surfaces that case as an error rather than silently reinitialising
// the handle callers already hold a reference to.
func reload(configPath string, buf *ringcap.Buffer) error {
	appCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if appCfg.Capture == nil {
		return nil
	}
	return buf.Reconfigure(*appCfg.Capture)
}

func nowTimestamp() ringcap.Timestamp {
	now := time.Now()
	return ringcap.Timestamp{Sec: now.Unix(), Usec: int64(now.Nanosecond() / 1000)}
}

// runPacketGenerator stands in for the external capture loop named in spec.md
// §1: it synthesizes small Ethernet-ish frames at a steady rate and calls
// Store once per "packet", exactly the contract an external capture loop
// would follow.
func runPacketGenerator(ctx context.Context, buf *ringcap.Buffer) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	payload := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hdr := ringcap.PacketHeader{
				Timestamp: nowTimestamp(),
				CapLen:    uint32(len(payload)),
				WireLen:   uint32(len(payload)),
			}
			_ = buf.Store(hdr, payload)
		}
	}
}

// serveHTTP exposes a tiny loopback-only JSON control surface standing in
// for the external control plane named in spec.md §1. It is plain
// net/http + encoding/json, not a message-queue/websocket protocol (those
// remain out of scope per spec.md's Non-goals).
func serveHTTP(addr string, buf *ringcap.Buffer, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(buf.Stats())
	})
	mux.HandleFunc("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		reason := r.URL.Query().Get("reason")
		if err := buf.Trigger(reason, nowTimestamp()); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/write", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		result, err := buf.WriteFile()
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Warn("ringcapd: http server stopped")
	}
}
