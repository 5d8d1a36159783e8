package modbusd

import (
	"context"
	"fmt"
	"time"

	"github.com/simonvetter/modbus"

	"github.com/gosuda/stplc/ast"
	struntime "github.com/gosuda/stplc/runtime"
)

// Binding ties a local variable to a holding register address on a remote
// peer. BOOL travels as one 0/1 word, INT as one word, REAL as the usual
// big-endian pair.
type Binding struct {
	Variable string
	Addr     uint16
}

type PollerConfig struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration
	Inputs   []Binding // remote sensor registers copied into INPUT variables
	Outputs  []Binding // OUTPUT variables pushed to remote actuator registers
}

// Poller closes the loop against a physical-model peer that runs its own
// Modbus server: sensors in, actuator commands out, once per interval,
// reconnecting with capped backoff when the peer drops. A degraded peer
// never stalls the scan loop; the poller only touches the table through
// its locked accessors, one variable at a time.
type Poller struct {
	cfg    PollerConfig
	table  *struntime.Table
	client *modbus.ModbusClient
	logf   func(format string, args ...any)

	open    bool
	retryAt time.Time
	backoff time.Duration
}

func NewPoller(cfg PollerConfig, table *struntime.Table, logf func(string, ...any)) (*Poller, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	for _, b := range cfg.Inputs {
		inf, ok := table.Info(b.Variable)
		if !ok {
			return nil, fmt.Errorf("poller: unknown variable %q", b.Variable)
		}
		if inf.Direction != ast.DirInput {
			return nil, fmt.Errorf("poller: %q is not an INPUT variable", b.Variable)
		}
	}
	for _, b := range cfg.Outputs {
		inf, ok := table.Info(b.Variable)
		if !ok {
			return nil, fmt.Errorf("poller: unknown variable %q", b.Variable)
		}
		if inf.Direction != ast.DirOutput {
			return nil, fmt.Errorf("poller: %q is not an OUTPUT variable", b.Variable)
		}
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     cfg.URL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("poller: %w", err)
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Poller{cfg: cfg, table: table, client: client, logf: logf, backoff: time.Second}, nil
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	defer func() {
		if p.open {
			p.client.Close()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !p.open {
			if time.Now().Before(p.retryAt) {
				continue
			}
			if err := p.client.Open(); err != nil {
				p.logf("peer %s unreachable: %v (retrying in %s)", p.cfg.URL, err, p.backoff)
				p.retryAt = time.Now().Add(p.backoff)
				p.backoff *= 2
				if p.backoff > 30*time.Second {
					p.backoff = 30 * time.Second
				}
				continue
			}
			p.open = true
			p.backoff = time.Second
		}
		if err := p.exchange(); err != nil {
			p.logf("peer exchange: %v", err)
			p.client.Close()
			p.open = false
			p.retryAt = time.Now().Add(p.backoff)
		}
	}
}

func (p *Poller) exchange() error {
	for _, b := range p.cfg.Inputs {
		inf, _ := p.table.Info(b.Variable)
		words, err := p.client.ReadRegisters(b.Addr, wordsFor(inf.Type), modbus.HOLDING_REGISTER)
		if err != nil {
			return fmt.Errorf("read %s: %w", b.Variable, err)
		}
		v := decodeTyped(inf.Type, words)
		p.table.Lock()
		err = p.table.Set(b.Variable, v)
		p.table.Unlock()
		if err != nil {
			return err
		}
	}
	for _, b := range p.cfg.Outputs {
		p.table.Lock()
		v, _ := p.table.Get(b.Variable)
		p.table.Unlock()
		if err := p.client.WriteRegisters(b.Addr, encodeTyped(v)); err != nil {
			return fmt.Errorf("write %s: %w", b.Variable, err)
		}
	}
	return nil
}

func wordsFor(t ast.Type) uint16 {
	if t == ast.TypeReal {
		return 2
	}
	return 1
}

func decodeTyped(t ast.Type, words []uint16) struntime.Value {
	switch t {
	case ast.TypeBool:
		return struntime.Bool(words[0] != 0)
	case ast.TypeReal:
		return struntime.Real(DecodeReal(words[0], words[1]))
	default:
		return struntime.Int(int16(words[0]))
	}
}

func encodeTyped(v struntime.Value) []uint16 {
	if v.Type() == ast.TypeBool {
		if v.Bool() {
			return []uint16{1}
		}
		return []uint16{0}
	}
	return EncodeWords(v)
}

// DefaultBindings derives the conventional peer layout from a declaration
// list: INPUT and OUTPUT variables share one holding-register space,
// allocated in declaration order by word size. A physical model that
// follows the same convention needs no explicit binding list.
func DefaultBindings(decls []ast.VarDecl) (inputs, outputs []Binding) {
	var addr uint16
	for _, d := range decls {
		if d.Direction == ast.DirInternal {
			continue
		}
		b := Binding{Variable: d.Name, Addr: addr}
		if d.Direction == ast.DirInput {
			inputs = append(inputs, b)
		} else {
			outputs = append(outputs, b)
		}
		addr += wordsFor(d.Type)
	}
	return inputs, outputs
}
