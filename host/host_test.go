package host

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/simonvetter/modbus"

	"github.com/gosuda/stplc/modbusd"
	struntime "github.com/gosuda/stplc/runtime"
)

const loopProgram = `
PROGRAM Loop
VAR_INPUT
    Enable : BOOL;
    Temp : REAL := 20.0;
END_VAR
VAR_OUTPUT
    Fan : INT;
END_VAR
IF Enable THEN
    Fan := Temp * 2.0;
ELSE
    Fan := 0;
END_IF;
END_PROGRAM
`

// freeListenURL grabs an ephemeral port so parallel test runs never
// collide on a fixed address.
func freeListenURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return "tcp://" + addr
}

func dial(t *testing.T, url string) *modbus.ModbusClient {
	t.Helper()
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err = client.Open(); err == nil {
			return client
		}
		if time.Now().After(deadline) {
			t.Fatalf("connect %s: %v", url, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNewRejectsBadPrograms(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"syntax", "PROGRAM P\nX :=\nEND_PROGRAM"},
		{"undeclared", "PROGRAM P\nVAR\n    X : INT;\nEND_VAR\nY := 1;\nEND_PROGRAM"},
		{"duplicate", "PROGRAM P\nVAR\n    X : INT;\n    X : INT;\nEND_VAR\nEND_PROGRAM"},
	}
	for _, tc := range cases {
		_, err := New(Config{Source: tc.src, Listen: "tcp://127.0.0.1:0"})
		if err == nil {
			t.Errorf("%s: expected load error", tc.name)
		}
	}
}

func TestClosedLoop(t *testing.T) {
	url := freeListenURL(t)
	h, err := New(Config{
		Source:     loopProgram,
		Listen:     url,
		Period:     10 * time.Millisecond,
		MaxClients: 2,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("run: %v", err)
		}
	}()

	client := dial(t, url)
	defer client.Close()

	// Force Enable and a 45 degree reading, then watch Fan follow.
	if err := client.WriteCoil(0, true); err != nil {
		t.Fatalf("write Enable: %v", err)
	}
	hi, lo := modbusd.EncodeReal(45.0)
	if err := client.WriteRegisters(0, []uint16{hi, lo}); err != nil {
		t.Fatalf("write Temp: %v", err)
	}

	want := int16(90)
	deadline := time.Now().Add(5 * time.Second)
	for {
		words, err := client.ReadRegisters(2, 1, modbus.HOLDING_REGISTER)
		if err != nil {
			t.Fatalf("read Fan: %v", err)
		}
		if int16(words[0]) == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Fan = %d, want %d", int16(words[0]), want)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Writing the OUTPUT register is refused.
	if err := client.WriteRegister(2, 1); err == nil {
		t.Fatalf("expected exception writing an OUTPUT register")
	}

	if h.VM().CycleCount() == 0 {
		t.Fatalf("scan loop never ran")
	}
	if got := h.Map().RegisterCount(); got != 3 {
		t.Fatalf("register count = %d, want 3", got)
	}
}

// A cycle that outlasts the period defers the schedule: the overrun is
// reported and every cycle still runs, none are dropped.
func TestSlowCyclesReportOverruns(t *testing.T) {
	var overruns atomic.Int64
	h, err := New(Config{
		Source: `
PROGRAM P
VAR
    Z : INT;
    X : INT;
END_VAR
X := 1 / Z;
END_PROGRAM
`,
		Listen: freeListenURL(t),
		Period: 5 * time.Millisecond,
		OnFault: func(*struntime.Fault) {
			// Stretch every cycle well past the period.
			time.Sleep(15 * time.Millisecond)
		},
		OnOverrun: func(lag time.Duration) {
			if lag <= 0 {
				t.Errorf("overrun reported with lag %s", lag)
			}
			overruns.Add(1)
		},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for h.VM().CycleCount() < 10 {
		if time.Now().After(deadline) {
			t.Fatalf("scan loop stalled at %d cycles", h.VM().CycleCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	// Every cycle ran three periods long, so nearly all of them overran.
	if got := overruns.Load(); got < 5 {
		t.Fatalf("%d overruns reported across %d slow cycles", got, h.VM().CycleCount())
	}
}

// Cycling the listener mid-run brings the server back without ever
// stalling the scan loop.
func TestListenerRestart(t *testing.T) {
	url := freeListenURL(t)
	h, err := New(Config{
		Source:     loopProgram,
		Listen:     url,
		Period:     5 * time.Millisecond,
		MaxClients: 2,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("run: %v", err)
		}
	}()

	client := dial(t, url)
	defer client.Close()
	if _, err := client.ReadRegisters(2, 1, modbus.HOLDING_REGISTER); err != nil {
		t.Fatalf("read before restart: %v", err)
	}

	before := h.VM().CycleCount()
	h.RestartListener()

	// The connection dies with the old listener; reconnect until the
	// restarted one answers again.
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := client.ReadRegisters(2, 1, modbus.HOLDING_REGISTER); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("listener never came back after restart")
		}
		client.Close()
		time.Sleep(20 * time.Millisecond)
		_ = client.Open()
	}

	for h.VM().CycleCount() <= before {
		if time.Now().After(deadline) {
			t.Fatalf("scan loop stalled during listener restart")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
