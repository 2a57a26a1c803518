package sim

// The single-cycle engine composes the stage primitives directly, one
// instruction per cycle, with no latches, hazards, or prediction. It is
// the reference the pipelined engine is tested against.

// RunSingleCycle executes until the program exits or the cycle cap is
// hit, returning the exit status.
func RunSingleCycle(cpu *CPU, mem *Memory) (int, error) {
	for {
		if max := cpu.Policy.MaxCycles; max != 0 && cpu.History.Cycles >= max {
			return 1, &CycleLimitError{Limit: max}
		}
		halted, status, err := stepSingle(cpu, mem)
		if err != nil {
			return 1, err
		}
		if halted {
			return int(status), nil
		}
	}
}

func stepSingle(cpu *CPU, mem *Memory) (halted bool, status uint32, err error) {
	cpu.History.Cycles++
	if cpu.StackOverflow() {
		return false, 0, cpu.stackErr()
	}

	pc := cpu.PC

	// IF
	word, err := fetch(mem, pc)
	if err != nil {
		return false, 0, err
	}
	// ID
	inst, err := decodeAt(word, pc)
	if err != nil {
		return false, 0, err
	}
	op1, op2 := regRead(cpu, inst)
	// EX
	out, err := execute(cpu, mem, inst, pc, op1, op2)
	if err != nil {
		return false, 0, err
	}
	// MEM
	wb, err := memAccess(mem, inst, pc, out.Result, op2)
	if err != nil {
		return false, 0, err
	}
	// WB
	writeBack(cpu, inst, wb)

	if inst.IsBubble() {
		cpu.tracef("cycle %d  bubble", cpu.History.Cycles)
	} else {
		cpu.History.Instructions++
		cpu.tracef("cycle %d  pc=0x%08x  %s", cpu.History.Cycles, pc, inst)
	}

	if out.Exit {
		return true, out.Status, nil
	}

	if out.Taken {
		cpu.verbosef("branch: pc=%#010x -> %#010x", pc, out.Target)
		cpu.PC = out.Target
	} else {
		cpu.PC = pc + 4
	}
	return false, 0, nil
}
