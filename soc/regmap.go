// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package soc

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/db47h/hwsoc/wishbone"
	"github.com/pkg/errors"
)

// A RegisterEntry describes a register in the system's address space.
//
type RegisterEntry struct {
	Slave  string
	Name   string
	Addr   uint32
	Width  int
	Access string
	Reset  uint32
	Doc    string
}

// FullName returns the register name prefixed with its slave name.
//
func (e RegisterEntry) FullName() string { return e.Slave + "_" + e.Name }

// A RegisterMap lists the regions and registers of a system.
//
type RegisterMap struct {
	ClockFreq uint64
	Regions   []wishbone.Region
	Registers []RegisterEntry
}

// RegisterMap returns the register map of s.
//
func (s *System) RegisterMap() *RegisterMap {
	m := &RegisterMap{ClockFreq: s.Clock.Freq, Regions: s.Context.Regions()}
	for _, a := range s.Context.Slaves() {
		r := a.Region()
		for _, reg := range a.Registers() {
			m.Registers = append(m.Registers, RegisterEntry{
				Slave:  r.Name,
				Name:   reg.Name,
				Addr:   r.Base + reg.Offset,
				Width:  reg.Width,
				Access: reg.Access.String(),
				Reset:  reg.Reset,
				Doc:    reg.Doc,
			})
		}
	}
	return m
}

// Lookup returns the register with the given full name.
//
func (m *RegisterMap) Lookup(name string) (RegisterEntry, bool) {
	for _, e := range m.Registers {
		if e.FullName() == name {
			return e, true
		}
	}
	return RegisterEntry{}, false
}

// WriteCSV writes the register map in csr.csv format:
//
//	constant,config_clock_frequency,<freq>,,
//	csr_base,<slave>,<base>,,
//	csr_register,<slave>_<name>,<address>,<width>,<access>
//	memory_region,<slave>,<base>,<size>,<type>
//
func (m *RegisterMap) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	recs := [][]string{{"constant", "config_clock_frequency", strconv.FormatUint(m.ClockFreq, 10), "", ""}}
	for _, r := range m.Regions {
		recs = append(recs, []string{"csr_base", r.Name, addr(r.Base), "", ""})
	}
	for _, e := range m.Registers {
		recs = append(recs, []string{"csr_register", e.FullName(), addr(e.Addr), strconv.Itoa(e.Width), e.Access})
	}
	for _, r := range m.Regions {
		recs = append(recs, []string{"memory_region", r.Name, addr(r.Base), strconv.FormatUint(uint64(r.Size), 10), r.Type.String()})
	}
	return errors.Wrap(cw.WriteAll(recs), "write register map")
}

func addr(v uint32) string { return fmt.Sprintf("0x%08x", v) }

// ReadRegisterMap reads a register map written by WriteCSV. Register slave
// names are recovered from the memory regions. Documentation and reset
// values are not part of the format.
//
func ReadRegisterMap(r io.Reader) (*RegisterMap, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read register map")
	}
	m := &RegisterMap{}
	for i, rec := range recs {
		if len(rec) != 5 {
			return nil, errors.Errorf("register map line %d: expected 5 fields, got %d", i+1, len(rec))
		}
		bad := func(err error) error { return errors.Wrapf(err, "register map line %d", i+1) }
		switch rec[0] {
		case "constant":
			if rec[1] == "config_clock_frequency" {
				if m.ClockFreq, err = strconv.ParseUint(rec[2], 0, 64); err != nil {
					return nil, bad(err)
				}
			}
		case "csr_base":
		case "csr_register":
			a, err := strconv.ParseUint(rec[2], 0, 32)
			if err != nil {
				return nil, bad(err)
			}
			w, err := strconv.Atoi(rec[3])
			if err != nil {
				return nil, bad(err)
			}
			m.Registers = append(m.Registers, RegisterEntry{Name: rec[1], Addr: uint32(a), Width: w, Access: rec[4]})
		case "memory_region":
			b, err := strconv.ParseUint(rec[2], 0, 32)
			if err != nil {
				return nil, bad(err)
			}
			sz, err := strconv.ParseUint(rec[3], 0, 32)
			if err != nil {
				return nil, bad(err)
			}
			t := wishbone.IO
			if rec[4] == wishbone.Memory.String() {
				t = wishbone.Memory
			}
			m.Regions = append(m.Regions, wishbone.Region{Name: rec[1], Base: uint32(b), Size: uint32(sz), Type: t})
		default:
			return nil, errors.Errorf("register map line %d: unknown record type %q", i+1, rec[0])
		}
	}
	for i := range m.Registers {
		e := &m.Registers[i]
		for _, reg := range m.Regions {
			if p := reg.Name + "_"; reg.Contains(e.Addr) && strings.HasPrefix(e.Name, p) {
				e.Slave, e.Name = reg.Name, e.Name[len(p):]
				break
			}
		}
	}
	return m, nil
}

// WriteMarkdown writes the register map as Markdown documentation.
//
func (m *RegisterMap) WriteMarkdown(w io.Writer, title string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\nSystem clock: %d Hz\n\n## Memory map\n\n", title, m.ClockFreq)
	b.WriteString("| region | base | size | type |\n|---|---|---|---|\n")
	for _, r := range m.Regions {
		fmt.Fprintf(&b, "| %s | %s | 0x%x | %s |\n", r.Name, addr(r.Base), r.Size, r.Type)
	}
	for _, r := range m.Regions {
		fmt.Fprintf(&b, "\n## %s\n\n| register | address | width | access | reset | description |\n|---|---|---|---|---|---|\n", r.Name)
		for _, e := range m.Registers {
			if e.Slave != r.Name {
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %s | 0x%x | %s |\n", e.Name, addr(e.Addr), e.Width, e.Access, e.Reset, e.Doc)
		}
	}
	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "write register documentation")
}
