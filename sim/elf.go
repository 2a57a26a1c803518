package sim

import (
	"debug/elf"
	"fmt"
)

// Default stack placement, matching the loader the test programs were
// linked against: SP starts at StackBase and grows down.
const (
	DefaultStackBase uint32 = 0x80000000
	DefaultStackSize uint32 = 0x400000
)

// LoadELF maps all PT_LOAD segments of an ELF32 little-endian RV32I
// executable into memory at their virtual addresses and sets the CPU
// entry PC. Pages are allocated on demand; bytes beyond the file size
// are zero-filled up to the segment's memory size.
func LoadELF(path string, cpu *CPU, mem *Memory) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return fmt.Errorf("load %s: not a 32-bit ELF (class %v)", path, f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		return fmt.Errorf("load %s: not little-endian (%v)", path, f.Data)
	}
	if f.Machine != elf.EM_RISCV {
		return fmt.Errorf("load %s: not a RISC-V executable (machine %v)", path, f.Machine)
	}

	mmu := mem.MMU()
	for _, ph := range f.Progs {
		if ph.Type != elf.PT_LOAD {
			continue
		}
		vaddr := uint32(ph.Vaddr)
		if uint64(vaddr)+ph.Memsz > 1<<32 {
			return fmt.Errorf("load %s: segment @%#x exceeds the 32-bit address space", path, vaddr)
		}

		buf := make([]byte, ph.Memsz)
		if ph.Filesz > 0 {
			if _, err := ph.ReadAt(buf[:ph.Filesz], 0); err != nil {
				return fmt.Errorf("load %s: read segment @%#x: %w", path, vaddr, err)
			}
		}

		cpu.verbosef("loading segment: vaddr=%#010x memsz=%#x filesz=%#x",
			vaddr, ph.Memsz, ph.Filesz)

		for i, b := range buf {
			addr := vaddr + uint32(i)
			if !mmu.PageExists(addr) {
				mmu.AllocatePage(addr)
			}
			mmu.Set8(addr, b)
		}
	}

	cpu.PC = uint32(f.Entry)
	cpu.verbosef("initial PC: %#010x", cpu.PC)
	return nil
}

// SetStack carves out the stack region and points SP at its base.
func SetStack(cpu *CPU, mem *Memory, base, size uint32) {
	cpu.StackBase = base
	cpu.StackSize = size
	cpu.Regs.Write(regSP, base)

	mmu := mem.MMU()
	for addr := base - size; addr <= base; addr += pageSize {
		mmu.AllocatePage(addr)
	}
}
