// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package wishbone

import (
	"fmt"

	"github.com/pkg/errors"
)

// RegionType is the type of an address region.
//
type RegionType int

// Region types.
const (
	IO RegionType = iota
	Memory
)

func (t RegionType) String() string {
	if t == Memory {
		return "memory"
	}
	return "io"
}

// A Region is a contiguous range of bus addresses owned by one slave.
//
type Region struct {
	Name string
	Base uint32
	Size uint32
	Type RegionType
}

// End returns the first address past the region.
//
func (r Region) End() uint64 { return uint64(r.Base) + uint64(r.Size) }

// Contains returns true if addr falls within r.
//
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Base && uint64(addr) < r.End()
}

// Overlaps returns true if r and o share at least one address.
//
func (r Region) Overlaps(o Region) bool {
	return uint64(r.Base) < o.End() && uint64(o.Base) < r.End()
}

func (r Region) String() string {
	return fmt.Sprintf("%s [0x%08x-0x%08x)", r.Name, r.Base, r.End())
}

// Validate checks that the size of r is a power of two and that its base is
// aligned on its size.
//
func (r Region) Validate() error {
	if r.Size == 0 || r.Size&(r.Size-1) != 0 {
		return errors.Errorf("region %s: size 0x%x is not a power of two", r.Name, r.Size)
	}
	if r.Base&(r.Size-1) != 0 {
		return errors.Errorf("region %s: base 0x%08x is not aligned on size 0x%x", r.Name, r.Base, r.Size)
	}
	return nil
}

// AlignSize returns the smallest power of two greater or equal to n, and at
// least 4.
//
func AlignSize(n uint32) uint32 {
	s := uint32(4)
	for s < n && s != 0 {
		s <<= 1
	}
	return s
}

// OverlapError is returned when two regions overlap.
//
type OverlapError struct {
	A, B Region
}

func (e *OverlapError) Error() string {
	return "region " + e.A.String() + " overlaps region " + e.B.String()
}

// A Map is an ordered set of non-overlapping regions with unique names.
//
type Map struct {
	regions []Region
}

// Add adds r to the map.
//
func (m *Map) Add(r Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, o := range m.regions {
		if o.Name == r.Name {
			return errors.Errorf("duplicate region name %s", r.Name)
		}
		if o.Overlaps(r) {
			return &OverlapError{A: r, B: o}
		}
	}
	m.regions = append(m.regions, r)
	return nil
}

// Alloc allocates a region of the given size at the lowest free aligned
// address greater or equal to from.
//
func (m *Map) Alloc(name string, size uint32, typ RegionType, from uint32) (Region, error) {
	size = AlignSize(size)
	base := (uint64(from) + uint64(size) - 1) &^ uint64(size-1)
	for base+uint64(size) <= 1<<32 {
		r := Region{Name: name, Base: uint32(base), Size: size, Type: typ}
		free := true
		for _, o := range m.regions {
			if o.Overlaps(r) {
				free = false
				base = (o.End() + uint64(size) - 1) &^ uint64(size-1)
				break
			}
		}
		if free {
			return r, m.Add(r)
		}
	}
	return Region{}, errors.Errorf("region %s: no free address space for 0x%x bytes", name, size)
}

// Find returns the region containing addr.
//
func (m *Map) Find(addr uint32) (Region, bool) {
	for _, r := range m.regions {
		if r.Contains(addr) {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns the regions in insertion order.
//
func (m *Map) Regions() []Region {
	return append([]Region(nil), m.regions...)
}
