package modbusd

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"

	"github.com/gosuda/stplc/ast"
	struntime "github.com/gosuda/stplc/runtime"
)

// Server exposes the variable table over Modbus TCP. Each request is
// resolved through the register map and served under one table lock
// acquisition, so a REAL pair always comes from a single cycle; the
// library decodes frames before invoking the handler, so the lock never
// spans network I/O.
type Server struct {
	m     *Map
	table *struntime.Table
	srv   *modbus.ModbusServer
}

// NewServer wires a register map and table behind a Modbus TCP listener.
// url is in the library's form, e.g. tcp://0.0.0.0:5020.
func NewServer(url string, m *Map, table *struntime.Table, maxClients uint) (*Server, error) {
	s := &Server{m: m, table: table}
	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        url,
		Timeout:    30 * time.Second,
		MaxClients: maxClients,
	}, s)
	if err != nil {
		return nil, fmt.Errorf("modbus server: %w", err)
	}
	s.srv = srv
	return s, nil
}

func (s *Server) Start() error {
	return s.srv.Start()
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop() error {
	return s.srv.Stop()
}

// HandleCoils serves coil reads for every mapped BOOL and coil writes for
// INPUT-direction BOOLs. OUTPUT and INTERNAL coils are PLC-owned: writing
// them is an illegal function, not an illegal address.
func (s *Server) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	s.table.Lock()
	defer s.table.Unlock()

	if req.IsWrite {
		// Validate the whole range first so a bad request writes nothing.
		for i := uint16(0); i < req.Quantity; i++ {
			e, ok := s.m.CoilAt(req.Addr + i)
			if !ok {
				return nil, modbus.ErrIllegalDataAddress
			}
			if e.Direction != ast.DirInput {
				return nil, modbus.ErrIllegalFunction
			}
		}
		for i := uint16(0); i < req.Quantity; i++ {
			e, _ := s.m.CoilAt(req.Addr + i)
			_ = s.table.Set(e.Name, struntime.Bool(req.Args[i]))
		}
		return nil, nil
	}

	res := make([]bool, 0, req.Quantity)
	for i := uint16(0); i < req.Quantity; i++ {
		e, ok := s.m.CoilAt(req.Addr + i)
		if !ok {
			return nil, modbus.ErrIllegalDataAddress
		}
		v, _ := s.table.Get(e.Name)
		res = append(res, v.Bool())
	}
	return res, nil
}

// HandleHoldingRegisters serves register reads for every mapped INT/REAL
// and writes for INPUT-direction ones. A write touching only half of a
// REAL pair is rejected: pairs change atomically or not at all.
func (s *Server) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	s.table.Lock()
	defer s.table.Unlock()

	if req.IsWrite {
		if err := s.checkRegisterWrite(req.Addr, req.Quantity); err != nil {
			return nil, err
		}
		for i := uint16(0); i < req.Quantity; {
			e, _, _ := s.m.RegisterAt(req.Addr + i)
			_ = s.table.Set(e.Name, DecodeWords(e, req.Args[i:i+e.Words]))
			i += e.Words
		}
		return nil, nil
	}

	res := make([]uint16, 0, req.Quantity)
	for i := uint16(0); i < req.Quantity; i++ {
		e, word, ok := s.m.RegisterAt(req.Addr + i)
		if !ok {
			return nil, modbus.ErrIllegalDataAddress
		}
		v, _ := s.table.Get(e.Name)
		res = append(res, EncodeWords(v)[word])
	}
	return res, nil
}

func (s *Server) checkRegisterWrite(addr, quantity uint16) error {
	for i := uint16(0); i < quantity; i++ {
		e, word, ok := s.m.RegisterAt(addr + i)
		if !ok {
			return modbus.ErrIllegalDataAddress
		}
		if e.Direction != ast.DirInput {
			return modbus.ErrIllegalFunction
		}
		// A REAL's first covered word must be the high word and the low
		// word must still be inside the range.
		if e.Words == 2 {
			if word == 1 && i == 0 {
				return modbus.ErrIllegalDataAddress
			}
			if word == 0 && i+1 >= quantity {
				return modbus.ErrIllegalDataAddress
			}
		}
	}
	return nil
}

// The discrete-input and input-register function classes carry no mapped
// addresses; everything lives in coils and holding registers.
func (s *Server) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalDataAddress
}

func (s *Server) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalDataAddress
}
