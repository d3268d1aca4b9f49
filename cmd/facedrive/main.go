// facedrive maps head pose from an external perception process onto
// keyboard driving controls.
package main

import (
	"context"
	"flag"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-facedrive/internal/config"
	"github.com/teslashibe/go-facedrive/internal/log"
	"github.com/teslashibe/go-facedrive/pkg/drive"
	"github.com/teslashibe/go-facedrive/pkg/pose"
	"github.com/teslashibe/go-facedrive/pkg/session"
	"github.com/teslashibe/go-facedrive/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML (defaults apply when empty)")
	preset := flag.String("preset", "", "Built-in preset: default, gentle, responsive")
	mock := flag.Bool("mock", false, "Use a synthetic pose source instead of the perception socket")
	noWeb := flag.Bool("no-web", false, "Disable the dashboard server")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *preset)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level)

	store, err := config.NewStore(cfg)
	if err != nil {
		log.Error("configuration rejected", "error", err)
		os.Exit(1)
	}

	var source pose.Source
	if *mock {
		source = newSyntheticSource(cfg.TickInterval())
		log.Info("using synthetic pose source")
	} else {
		source = pose.NewSocketSource(cfg.PoseSource.URL, cfg.ReconnectBackoff())
	}
	defer source.Close()

	var logW *session.Writer
	if cfg.SessionLog.Enabled {
		logW, err = session.NewWriter(cfg.SessionLog.Dir)
		if err != nil {
			log.Error("session log unavailable", "error", err)
			os.Exit(1)
		}
		defer logW.Close()
		log.Info("session log opened", "path", logW.Path(), "session", logW.ID())
	}

	var dashboard *web.Server
	if cfg.Web.Enabled && !*noWeb {
		dashboard = web.NewServer(cfg.Web.Port)
		dashboard.ConfigSource = store.Current
		defer dashboard.Shutdown()
	}

	loop := drive.New(drive.Options{
		Store:     store,
		Source:    source,
		Injector:  &loggingInjector{},
		Dashboard: dashboard,
		Log:       logW,
	})

	if dashboard != nil {
		dashboard.OnCommand = loop.Command
		if logW != nil {
			dashboard.UpdateStatus(func(st *web.Status) { st.SessionID = logW.ID() })
		}
		dashboard.StartAsync()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		log.Error("drive loop failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path, preset string) (config.SessionConfig, error) {
	if path != "" {
		return config.Load(path)
	}
	switch preset {
	case "gentle":
		return config.GentleConfig(), nil
	case "responsive":
		return config.ResponsiveConfig(), nil
	default:
		return config.DefaultConfig(), nil
	}
}

// loggingInjector stands in where no OS input layer is wired; deployments
// implement actuate.Injector against their platform's input API.
type loggingInjector struct{}

func (loggingInjector) Press(key string)   { log.Info("key down", "key", key) }
func (loggingInjector) Release(key string) { log.Info("key up", "key", key) }

// syntheticSource emits a slow figure-of-eight head sweep for demos and
// dashboard work without a camera.
type syntheticSource struct {
	start  time.Time
	period time.Duration
	last   time.Time
}

func newSyntheticSource(tick time.Duration) *syntheticSource {
	return &syntheticSource{start: time.Now(), period: tick}
}

func (s *syntheticSource) Next() (pose.Sample, bool) {
	now := time.Now()
	if now.Sub(s.last) < s.period {
		return pose.Sample{}, false
	}
	s.last = now

	t := now.Sub(s.start).Seconds()
	return pose.Sample{
		Yaw:       18 * math.Sin(t/3),
		Pitch:     8 * math.Sin(t/7),
		Roll:      2 * math.Sin(t/5),
		FaceFound: true,
		T:         now,
	}, true
}

func (s *syntheticSource) Close() error { return nil }

var _ pose.Source = (*syntheticSource)(nil)
