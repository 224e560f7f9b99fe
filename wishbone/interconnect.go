// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package wishbone

import (
	"strconv"

	"github.com/db47h/hwsoc"
	"github.com/pkg/errors"
)

// Arbitration selects how the interconnect grants the bus to masters.
//
type Arbitration int

// Arbitration policies.
//
// With RoundRobin, the grant moves to the next requesting master, in
// declaration order, after the current one releases the bus. With Priority,
// the requesting master declared first always wins once the bus is released.
// In both cases a master keeps the bus for the duration of a transaction and
// the grant is re-evaluated on every rising edge where the granted master's
// strobe is low.
const (
	RoundRobin Arbitration = iota
	Priority
)

func (a Arbitration) String() string {
	if a == Priority {
		return "priority"
	}
	return "round-robin"
}

// ParseArbitration parses an arbitration policy name.
//
func ParseArbitration(s string) (Arbitration, error) {
	switch s {
	case "", "round-robin", "roundrobin":
		return RoundRobin, nil
	case "priority":
		return Priority, nil
	}
	return 0, errors.Errorf("unknown arbitration policy %q", s)
}

// MasterInterface returns the interconnect port name of the named master.
//
func MasterInterface(name string) Interface { return Interface{Name: "m_" + name} }

// SlaveInterface returns the interconnect port name of the slave owning r.
//
func SlaveInterface(r Region) Interface { return Interface{Name: "s_" + r.Name} }

// Interconnect returns a shared bus part connecting the named masters to the
// slaves owning the given regions.
//
// The granted master's request is forwarded to the slave whose region
// contains the request address; every other slave sees its strobe
// deasserted. The selected slave's read data and acknowledge are returned to
// the granted master only. Requests to unmapped addresses reach no slave.
//
//	Inputs: m_<master>_adr[32], m_<master>_dat_w[32], m_<master>_we, m_<master>_stb,
//	        s_<slave>_dat_r[32], s_<slave>_ack
//	Outputs: m_<master>_dat_r[32], m_<master>_ack,
//	         s_<slave>_adr[32], s_<slave>_dat_w[32], s_<slave>_we, s_<slave>_stb
//
func Interconnect(masters []string, slaves []Region, arb Arbitration) hwsoc.NewPartFn {
	var ins, outs []string
	for _, m := range masters {
		i := MasterInterface(m)
		ins = append(ins, i.Request()...)
		outs = append(outs, i.Response()...)
	}
	for _, r := range slaves {
		i := SlaveInterface(r)
		outs = append(outs, i.Request()...)
		ins = append(ins, i.Response()...)
	}
	return (&hwsoc.PartSpec{
		Name:    "Interconnect" + strconv.Itoa(len(masters)) + "x" + strconv.Itoa(len(slaves)),
		Inputs:  ins,
		Outputs: outs,
		Mount: func(s *hwsoc.Socket) []hwsoc.Component {
			mp := make([]*SlavePort, len(masters)) // master side: we act as a slave
			for i, m := range masters {
				mp[i] = MasterInterface(m).BindSlave(s)
			}
			sp := make([]*MasterPort, len(slaves)) // slave side: we act as a master
			for i, r := range slaves {
				sp[i] = SlaveInterface(r).BindMaster(s)
			}
			var grant int
			return []hwsoc.Component{func(c *hwsoc.Circuit) {
				if len(mp) == 0 {
					for _, p := range sp {
						p.Drive(c, nil)
					}
					return
				}
				if c.AtTick() && !c.Get(mp[grant].stb) {
					grant = arbitrate(c, mp, grant, arb)
				}
				g := mp[grant]
				sel := -1
				var tx *Transaction
				if c.Get(g.stb) {
					t := Transaction{
						Addr: uint32(c.GetInt(g.adr)),
						DatW: uint32(c.GetInt(g.datW)),
						We:   c.Get(g.we),
						Stb:  true,
					}
					tx = &t
					for i, r := range slaves {
						if r.Contains(t.Addr) {
							sel = i
							break
						}
					}
				}
				for i, p := range sp {
					if i == sel {
						p.Drive(c, tx)
					} else {
						p.Drive(c, nil)
					}
				}
				for i, p := range mp {
					if i == grant && sel >= 0 {
						c.Set(p.ack, sp[sel].Ack(c))
						c.SetInt(p.datR, uint64(sp[sel].DatR(c)))
					} else {
						c.Set(p.ack, false)
						c.SetInt(p.datR, 0)
					}
				}
			}}
		}}).NewPart
}

func arbitrate(c *hwsoc.Circuit, mp []*SlavePort, grant int, arb Arbitration) int {
	n := len(mp)
	switch arb {
	case Priority:
		for i := 0; i < n; i++ {
			if c.Get(mp[i].stb) {
				return i
			}
		}
	default:
		for i := 1; i <= n; i++ {
			j := (grant + i) % n
			if c.Get(mp[j].stb) {
				return j
			}
		}
	}
	return grant
}
