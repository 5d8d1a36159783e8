package host

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gosuda/stplc/modbusd"
	"github.com/gosuda/stplc/parser"
	struntime "github.com/gosuda/stplc/runtime"
)

type Config struct {
	Source     string // ST program text
	Listen     string // e.g. tcp://0.0.0.0:5020
	Period     time.Duration
	MaxClients uint
	Poll       *modbusd.PollerConfig // optional physical-model peer
	OnFault    func(*struntime.Fault)
	OnOverrun  func(lag time.Duration)
	Logf       func(format string, args ...any)
}

// Host owns the scan timer and wires program, table, register map and
// server together. Program and map are built once here; any load-time
// fault surfaces from New and nothing starts.
type Host struct {
	cfg    Config
	vm     *struntime.VM
	m      *modbusd.Map
	server *modbusd.Server
	poller *modbusd.Poller

	restart atomic.Bool
}

func New(cfg Config) (*Host, error) {
	if cfg.Period <= 0 {
		cfg.Period = 100 * time.Millisecond
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = 5
	}
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}
	prog, err := parser.ParseProgram(cfg.Source)
	if err != nil {
		return nil, err
	}
	vm, err := struntime.New(prog)
	if err != nil {
		return nil, err
	}
	m, err := modbusd.Build(prog.Decls)
	if err != nil {
		return nil, err
	}
	server, err := modbusd.NewServer(cfg.Listen, m, vm.Table(), cfg.MaxClients)
	if err != nil {
		return nil, err
	}
	if cfg.OnFault != nil {
		vm.SetFaultHandler(cfg.OnFault)
	}
	h := &Host{cfg: cfg, vm: vm, m: m, server: server}
	if cfg.Poll != nil {
		pollCfg := *cfg.Poll
		if len(pollCfg.Inputs) == 0 && len(pollCfg.Outputs) == 0 {
			pollCfg.Inputs, pollCfg.Outputs = modbusd.DefaultBindings(prog.Decls)
		}
		poller, err := modbusd.NewPoller(pollCfg, vm.Table(), cfg.Logf)
		if err != nil {
			return nil, err
		}
		h.poller = poller
	}
	return h, nil
}

func (h *Host) VM() *struntime.VM {
	return h.vm
}

func (h *Host) Map() *modbusd.Map {
	return h.m
}

// RestartListener asks the run loop to cycle the Modbus listener between
// scan cycles, e.g. after a network reconfiguration.
func (h *Host) RestartListener() {
	h.restart.Store(true)
}

// Run starts the register server and drives the scan loop until ctx is
// canceled. The first bind failure is fatal. Once the listener has been
// up, a failing rebind degrades the network layer only: cycles keep
// running and the listener is retried with capped backoff. An overrun
// defers the following cycle; the schedule is never thinned.
func (h *Host) Run(ctx context.Context) error {
	if err := h.server.Start(); err != nil {
		return fmt.Errorf("listener: %w", err)
	}
	defer h.server.Stop()

	if h.poller != nil {
		go h.poller.Run(ctx)
	}

	listenerUp := true
	backoff := time.Second
	var retryAt time.Time

	next := time.Now().Add(h.cfg.Period)
	timer := time.NewTimer(h.cfg.Period)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		h.vm.RunCycle()

		if h.restart.Swap(false) && listenerUp {
			_ = h.server.Stop()
			listenerUp = false
			retryAt = time.Time{}
			backoff = time.Second
		}
		if !listenerUp && time.Now().After(retryAt) {
			if err := h.server.Start(); err != nil {
				h.cfg.Logf("listener: %v (retrying in %s)", err, backoff)
				retryAt = time.Now().Add(backoff)
				backoff *= 2
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}
			} else {
				listenerUp = true
			}
		}

		next = next.Add(h.cfg.Period)
		d := time.Until(next)
		if d < 0 {
			if h.cfg.OnOverrun != nil {
				h.cfg.OnOverrun(-d)
			}
			d = 0
		}
		timer.Reset(d)
	}
}
