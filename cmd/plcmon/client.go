package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/simonvetter/modbus"

	"github.com/gosuda/stplc/ast"
	"github.com/gosuda/stplc/modbusd"
	struntime "github.com/gosuda/stplc/runtime"
)

// monClient serializes poll snapshots and operator writes onto one
// modbus connection; tea commands run concurrently.
type monClient struct {
	mu sync.Mutex
	c  *modbus.ModbusClient
}

func newMonClient(url string, timeout time.Duration) (*monClient, error) {
	c, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := c.Open(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}
	return &monClient{c: c}, nil
}

func (m *monClient) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Close()
}

func (m *monClient) readAll(entries []modbusd.Entry) (map[string]struntime.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struntime.Value, len(entries))
	for _, e := range entries {
		if e.Class == modbusd.ClassCoil {
			bits, err := m.c.ReadCoils(e.Addr, 1)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", e.Name, err)
			}
			out[e.Name] = struntime.Bool(bits[0])
			continue
		}
		words, err := m.c.ReadRegisters(e.Addr, e.Words, modbus.HOLDING_REGISTER)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name, err)
		}
		out[e.Name] = modbusd.DecodeWords(e, words)
	}
	return out, nil
}

func (m *monClient) write(e modbusd.Entry, v struntime.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Class == modbusd.ClassCoil {
		return m.c.WriteCoil(e.Addr, v.Bool())
	}
	return m.c.WriteRegisters(e.Addr, modbusd.EncodeWords(v))
}

// nudged returns v stepped up or down: REAL by 0.5, INT by 1.
func nudged(v struntime.Value, up bool) struntime.Value {
	switch v.Type() {
	case ast.TypeReal:
		if up {
			return struntime.Real(v.Real() + 0.5)
		}
		return struntime.Real(v.Real() - 0.5)
	case ast.TypeInt:
		if up {
			return struntime.Int(v.Int16() + 1)
		}
		return struntime.Int(v.Int16() - 1)
	}
	return v
}
