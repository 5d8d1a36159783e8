// Command plcmon is a terminal monitor for a running stplc instance. It
// parses the same .st program to recover the register layout, then polls
// the live values and lets the operator force INPUT variables.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/stplc/modbusd"
	"github.com/gosuda/stplc/parser"
)

func main() {
	var (
		program  = flag.String("program", "", "path to the .st program served by stplc (required)")
		addr     = flag.String("addr", "tcp://127.0.0.1:5020", "modbus URL of the emulator")
		interval = flag.Duration("interval", 500*time.Millisecond, "poll interval")
	)
	flag.Parse()

	if *program == "" {
		fmt.Fprintln(os.Stderr, "plcmon: -program is required")
		flag.Usage()
		os.Exit(2)
	}
	src, err := os.ReadFile(*program)
	if err != nil {
		log.Fatalf("plcmon: %v", err)
	}
	prog, err := parser.ParseProgram(string(src))
	if err != nil {
		log.Fatalf("plcmon: %s: %v", *program, err)
	}
	m, err := modbusd.Build(prog.Decls)
	if err != nil {
		log.Fatalf("plcmon: %v", err)
	}

	client, err := newMonClient(*addr, 2*time.Second)
	if err != nil {
		log.Fatalf("plcmon: %v", err)
	}
	defer client.close()

	app := newAppModel(*addr, *interval, client, m.Entries())
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("plcmon: %v", err)
	}
}
