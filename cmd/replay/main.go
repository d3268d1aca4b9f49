// replay runs a recorded session log back through the control pipeline and
// prints the key-event timeline it produces, for tuning filter and actuator
// parameters offline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/teslashibe/go-facedrive/internal/config"
	"github.com/teslashibe/go-facedrive/internal/log"
	"github.com/teslashibe/go-facedrive/pkg/drive"
	"github.com/teslashibe/go-facedrive/pkg/session"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML (defaults apply when empty)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: replay [-config file] <session.csv>")
		os.Exit(2)
	}
	log.Init("warn")

	cfg := config.DefaultConfig()
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	store, err := config.NewStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	samples, err := session.ReadSamples(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stderr, "replay: session log holds no samples")
		os.Exit(1)
	}

	timeline := drive.Replay(store, samples)

	start := samples[0].T
	fmt.Printf("replayed %d samples spanning %s\n",
		len(samples), samples[len(samples)-1].T.Sub(start))
	for _, ev := range timeline {
		fmt.Printf("%8.3fs  %-12s %s\n", ev.T.Sub(start).Seconds(), ev.State, ev.Events)
	}
	fmt.Printf("%d key transitions\n", len(timeline))
}
