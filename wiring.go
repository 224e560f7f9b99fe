// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsoc

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Connection connects a part pin (PP) to a pin or wire of its container (CP).
// Either side may be a single pin ("a", "bus[3]"), a pin range ("bus[0..3]")
// or, on the part side, a whole bus name ("bus") in which case the container
// side is expanded to the same width.
//
type Connection struct {
	PP string
	CP string
}

// ParseConnections parses a connection configuration like "partPinX=chipPinY,
// ..." into a []Connection{{PP: "partPinX", CP: "chipPinY"}, ...}.
//
func ParseConnections(c string) ([]Connection, error) {
	var conns []Connection
	for _, f := range strings.Split(c, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		i := strings.IndexRune(f, '=')
		if i < 0 {
			return nil, errors.Errorf("in %q: missing '=' in connection %q", c, f)
		}
		pp, cp := strings.TrimSpace(f[:i]), strings.TrimSpace(f[i+1:])
		if pp == "" || cp == "" {
			return nil, errors.Errorf("in %q: invalid pin mapping %q", c, f)
		}
		conns = append(conns, Connection{PP: pp, CP: cp})
	}
	return conns, nil
}

// IO expands an input/output description like "a, b, bus[2]" to
// []string{"a", "b", "bus[0]", "bus[1]"}. It panics on malformed input.
//
func IO(spec string) []string {
	var out []string
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		i := strings.IndexRune(f, '[')
		if i < 0 {
			out = append(out, f)
			continue
		}
		if !strings.HasSuffix(f, "]") || i == 0 {
			panic(errors.Errorf("in %q: malformed bus declaration %q", spec, f))
		}
		n, err := strconv.Atoi(f[i+1 : len(f)-1])
		if err != nil || n <= 0 {
			panic(errors.Errorf("in %q: invalid bus size in %q", spec, f))
		}
		for j := 0; j < n; j++ {
			out = append(out, BusPinName(f[:i], j))
		}
	}
	return out
}

func isConstant(name string) bool {
	return name == True || name == False
}

func expandRange(name string) ([]string, error) {
	i := strings.IndexRune(name, '[')
	if i < 0 {
		return []string{name}, nil
	}
	bus := name[:i]
	if bus == "" {
		return nil, errors.New("empty bus name")
	}
	n := name[i+1:]
	i = strings.Index(n, "..")
	if i < 0 {
		return []string{name}, nil
	}
	start, err := strconv.Atoi(n[:i])
	if err != nil {
		return nil, err
	}
	n = n[i+2:]
	i = strings.IndexRune(n, ']')
	if i < 0 {
		return nil, errors.New("no terminating ] in bus range")
	}
	end, err := strconv.Atoi(n[:i])
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, errors.Errorf("invalid bus range %s", name)
	}
	r := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		r = append(r, BusPinName(bus, i))
	}
	return r, nil
}

// partPins expands a part side pin name against the part's pin set.
//
func partPins(pins map[string]bool, name string) ([]string, bool) {
	if pins[name] {
		return []string{name}, true
	}
	r, err := expandRange(name)
	if err != nil {
		return nil, false
	}
	if len(r) > 1 || strings.ContainsRune(name, '[') {
		for _, p := range r {
			if !pins[p] {
				return nil, false
			}
		}
		return r, true
	}
	// whole bus
	var bus []string
	for i := 0; pins[BusPinName(name, i)]; i++ {
		bus = append(bus, BusPinName(name, i))
	}
	return bus, len(bus) > 0
}

// expand maps every connected part pin to a single container wire.
//
func (p *PartSpec) expand(conns []Connection) (map[string]string, error) {
	pins := make(map[string]bool, len(p.Inputs)+len(p.Outputs))
	for _, n := range p.Inputs {
		pins[n] = true
	}
	for _, n := range p.Outputs {
		pins[n] = true
	}
	wires := make(map[string]string)
	for _, cn := range conns {
		ks, ok := partPins(pins, cn.PP)
		if !ok {
			return nil, errors.New("invalid pin name " + cn.PP + " for part " + p.Name)
		}
		vs, err := expandRange(cn.CP)
		if err != nil {
			return nil, errors.Wrap(err, "expand value "+cn.CP)
		}
		if len(ks) > 1 && len(vs) == 1 {
			v := vs[0]
			vs = make([]string, len(ks))
			for i := range vs {
				switch {
				case isConstant(v):
					vs[i] = v
				case strings.ContainsRune(v, '['):
					return nil, errors.New("pin count mismatch in pin mapping: " + cn.PP + "=" + cn.CP)
				default:
					vs[i] = BusPinName(v, i)
				}
			}
		}
		if len(ks) != len(vs) {
			return nil, errors.New("pin count mismatch in pin mapping: " + cn.PP + "=" + cn.CP)
		}
		for i, k := range ks {
			if _, dup := wires[k]; dup {
				return nil, errors.New("pin " + k + " of part " + p.Name + " connected more than once")
			}
			wires[k] = vs[i]
		}
	}
	return wires, nil
}
