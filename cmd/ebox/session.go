package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	wasmebox "github.com/wippyai/wasm-ebox"
	"github.com/wippyai/wasm-ebox/codec"
	"github.com/wippyai/wasm-ebox/ebox"
	"github.com/wippyai/wasm-ebox/table"
)

const sessionHelp = `commands:
  new <u32>          box a value
  get <h>            read through a transient shared guard
  set <h> <u32>      write through the held or a transient exclusive guard
  hold <h>           take and keep a shared guard
  holdmut <h>        take and keep the exclusive guard
  release <h>        release every guard kept for h
  raw <h>            give up ownership, print the address
  adopt <addr>       take ownership of a raw address
  drop <h>           destruct and free
  list               show all boxes`

// session is the command interpreter behind the interactive mode. It owns
// boxes of u32 through a table and keeps the guards the user asked to hold.
type session struct {
	heap   wasmebox.Heap
	codec  codec.Codec[uint32]
	boxes  *table.Table[uint32]
	shared map[table.Handle][]*ebox.Ref[uint32]
	excl   map[table.Handle]*ebox.RefMut[uint32]
	raw    []uint32
}

func newSession(heap wasmebox.Heap) *session {
	return &session{
		heap:   heap,
		codec:  codec.U32(),
		boxes:  table.New[uint32](),
		shared: make(map[table.Handle][]*ebox.Ref[uint32]),
		excl:   make(map[table.Handle]*ebox.RefMut[uint32]),
	}
}

func (s *session) exec(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := fields[0], fields[1:]

	want := map[string]int{
		"new": 1, "get": 1, "set": 2, "hold": 1, "holdmut": 1,
		"release": 1, "raw": 1, "adopt": 1, "drop": 1, "list": 0, "help": 0,
	}
	n, ok := want[cmd]
	if !ok {
		return "", fmt.Errorf("unknown command %q (try help)", cmd)
	}
	if len(args) != n {
		return "", fmt.Errorf("%s takes %d argument(s)", cmd, n)
	}

	switch cmd {
	case "help":
		return sessionHelp, nil
	case "list":
		return s.list(), nil
	case "new":
		v, err := parseU32(args[0])
		if err != nil {
			return "", err
		}
		return s.create(v)
	case "adopt":
		addr, err := parseU32(args[0])
		if err != nil {
			return "", err
		}
		return s.adopt(addr)
	}

	h, err := parseHandle(args[0])
	if err != nil {
		return "", err
	}
	b, ok := s.boxes.Get(h)
	if !ok {
		return "", fmt.Errorf("no box %v", h)
	}

	switch cmd {
	case "get":
		v, err := s.read(h, b)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v = %d", h, v), nil
	case "set":
		v, err := parseU32(args[1])
		if err != nil {
			return "", err
		}
		if err := s.write(h, b, v); err != nil {
			return "", err
		}
		return fmt.Sprintf("%v = %d", h, v), nil
	case "hold":
		r, err := b.TryBorrow()
		if err != nil {
			return "", err
		}
		s.shared[h] = append(s.shared[h], r)
		return fmt.Sprintf("%v borrowed (%v)", h, b.State()), nil
	case "holdmut":
		m, err := b.TryBorrowMut()
		if err != nil {
			return "", err
		}
		s.excl[h] = m
		return fmt.Sprintf("%v mutably borrowed", h), nil
	case "release":
		return fmt.Sprintf("%v released %d guard(s)", h, s.release(h)), nil
	case "raw":
		ptr, err := ebox.IntoRaw(b)
		if err != nil {
			return "", err
		}
		s.boxes.Take(h)
		s.raw = append(s.raw, ptr)
		return fmt.Sprintf("%v released to raw address 0x%x", h, ptr), nil
	case "drop":
		if err := s.boxes.Drop(h); err != nil {
			return "", err
		}
		return fmt.Sprintf("%v dropped", h), nil
	}
	return "", nil
}

func (s *session) create(v uint32) (string, error) {
	b, err := ebox.New(s.heap, s.codec, v)
	if err != nil {
		return "", err
	}
	h := s.boxes.Insert(b)
	return fmt.Sprintf("%v = %v at 0x%x", h, b, b.Ptr()), nil
}

func (s *session) adopt(addr uint32) (string, error) {
	i := slices.Index(s.raw, addr)
	if i < 0 {
		// Adopting an address we never released would double-own it.
		return "", fmt.Errorf("0x%x was not released with raw", addr)
	}
	b, err := ebox.Adopt(s.heap, s.codec, addr)
	if err != nil {
		return "", err
	}
	s.raw = slices.Delete(s.raw, i, i+1)
	h := s.boxes.Insert(b)
	return fmt.Sprintf("%v = %v (adopted)", h, b), nil
}

func (s *session) read(h table.Handle, b *ebox.Box[uint32]) (uint32, error) {
	if m, ok := s.excl[h]; ok {
		return m.Get()
	}
	r, err := b.TryBorrow()
	if err != nil {
		return 0, err
	}
	defer r.Release()
	return r.Get()
}

func (s *session) write(h table.Handle, b *ebox.Box[uint32], v uint32) error {
	if m, ok := s.excl[h]; ok {
		return m.Set(v)
	}
	m, err := b.TryBorrowMut()
	if err != nil {
		return err
	}
	defer m.Release()
	return m.Set(v)
}

func (s *session) release(h table.Handle) int {
	n := len(s.shared[h])
	for _, r := range s.shared[h] {
		r.Release()
	}
	delete(s.shared, h)
	if m, ok := s.excl[h]; ok {
		m.Release()
		delete(s.excl, h)
		n++
	}
	return n
}

func (s *session) list() string {
	var b strings.Builder
	s.boxes.Each(func(h table.Handle, box *ebox.Box[uint32]) bool {
		fmt.Fprintf(&b, "%v\t0x%x\t%v\t%v\n", h, box.Ptr(), box, box.State())
		return true
	})
	for _, p := range s.raw {
		fmt.Fprintf(&b, "-\t0x%x\t<raw>\n", p)
	}
	if b.Len() == 0 {
		return "no boxes"
	}
	return strings.TrimRight(b.String(), "\n")
}

// close releases every held guard and drops every box. Raw addresses are
// adopted back first so nothing leaks.
func (s *session) close() error {
	for h := range s.shared {
		s.release(h)
	}
	for h := range s.excl {
		s.release(h)
	}
	for _, p := range slices.Clone(s.raw) {
		if _, err := s.adopt(p); err != nil {
			return err
		}
	}
	return s.boxes.Close()
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid u32 %q", s)
	}
	return uint32(v), nil
}

func parseHandle(s string) (table.Handle, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid handle %q", s)
	}
	return table.Handle(v), nil
}
