package sim

import "errors"

// Memory is the byte-addressable adapter the stages use. Multi-byte
// accesses are little-endian and byte-composed, so alignment does not
// matter here. Faults carry the offending address; the engine that hit
// one fills in the PC.
type Memory struct {
	mmu *MMU
}

func NewMemory(mmu *MMU) *Memory { return &Memory{mmu: mmu} }

// MMU exposes the backing store for the loader.
func (m *Memory) MMU() *MMU { return m.mmu }

func (m *Memory) Read8(addr uint32) (uint32, error) {
	b, ok := m.mmu.Get8(addr)
	if !ok {
		return 0, &MemFault{Addr: addr}
	}
	return uint32(b), nil
}

func (m *Memory) Read16(addr uint32) (uint32, error) {
	lo, err := m.Read8(addr)
	if err != nil {
		return 0, err
	}
	hi, err := m.Read8(addr + 1)
	if err != nil {
		return 0, err
	}
	return lo | hi<<8, nil
}

func (m *Memory) Read32(addr uint32) (uint32, error) {
	lo, err := m.Read16(addr)
	if err != nil {
		return 0, err
	}
	hi, err := m.Read16(addr + 2)
	if err != nil {
		return 0, err
	}
	return lo | hi<<16, nil
}

// Read8S and Read16S sign-extend the loaded value.
func (m *Memory) Read8S(addr uint32) (uint32, error) {
	v, err := m.Read8(addr)
	if err != nil {
		return 0, err
	}
	return uint32(int32(int8(v))), nil
}

func (m *Memory) Read16S(addr uint32) (uint32, error) {
	v, err := m.Read16(addr)
	if err != nil {
		return 0, err
	}
	return uint32(int32(int16(v))), nil
}

func (m *Memory) Write8(addr uint32, v uint32) error {
	if !m.mmu.Set8(addr, byte(v)) {
		return &MemFault{Addr: addr, Write: true}
	}
	return nil
}

func (m *Memory) Write16(addr uint32, v uint32) error {
	if err := m.Write8(addr, v); err != nil {
		return err
	}
	return m.Write8(addr+1, v>>8)
}

func (m *Memory) Write32(addr uint32, v uint32) error {
	if err := m.Write16(addr, v); err != nil {
		return err
	}
	return m.Write16(addr+2, v>>16)
}

// Fetch32 reads an instruction word. Aliases Read32.
func (m *Memory) Fetch32(addr uint32) (uint32, error) {
	return m.Read32(addr)
}

// faultAt stamps a memory fault with the PC of the faulting instruction.
func faultAt(err error, pc uint32) error {
	var mf *MemFault
	if errors.As(err, &mf) {
		mf.PC = pc
	}
	return err
}
