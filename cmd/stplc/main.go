// Command stplc runs a Structured Text program on a scan cycle and
// serves its variable table over Modbus TCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gosuda/stplc/host"
	"github.com/gosuda/stplc/modbusd"
	struntime "github.com/gosuda/stplc/runtime"
)

func main() {
	var (
		program    = flag.String("program", "", "path to the .st program (required)")
		listen     = flag.String("listen", "tcp://0.0.0.0:5020", "modbus listen URL")
		period     = flag.Duration("period", 100*time.Millisecond, "scan cycle period")
		maxClients = flag.Uint("max-clients", 5, "max concurrent modbus clients")
		dumpMap    = flag.Bool("dump-map", false, "print the register map and exit")
		peer       = flag.String("peer", "", "optional modbus URL of a physical model to poll")
		pollEvery  = flag.Duration("poll-interval", 100*time.Millisecond, "peer poll interval")
	)
	flag.Parse()

	if *program == "" {
		fmt.Fprintln(os.Stderr, "stplc: -program is required")
		flag.Usage()
		os.Exit(2)
	}
	src, err := os.ReadFile(*program)
	if err != nil {
		log.Fatalf("stplc: %v", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	cfg := host.Config{
		Source:     string(src),
		Listen:     *listen,
		Period:     *period,
		MaxClients: *maxClients,
		Logf:       logger.Printf,
		OnFault: func(f *struntime.Fault) {
			logger.Printf("fault: %v", f)
		},
		OnOverrun: func(lag time.Duration) {
			logger.Printf("scan overrun by %s", lag)
		},
	}
	if *peer != "" {
		cfg.Poll = &modbusd.PollerConfig{
			URL:      *peer,
			Interval: *pollEvery,
		}
	}

	h, err := host.New(cfg)
	if err != nil {
		log.Fatalf("stplc: %s: %v", *program, err)
	}

	if *dumpMap {
		fmt.Print(h.Map())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			logger.Printf("SIGHUP: restarting listener")
			h.RestartListener()
		}
	}()

	logger.Printf("serving %s on %s, scan period %s", *program, *listen, *period)
	if err := h.Run(ctx); err != nil {
		log.Fatalf("stplc: %v", err)
	}
	logger.Printf("stopped after %d cycles", h.VM().CycleCount())
}
