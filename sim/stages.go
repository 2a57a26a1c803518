package sim

// The five stage primitives. Each is a pure function of its inputs plus
// the memory/console collaborators; both engines compose them, so their
// semantics are defined exactly once.

// fetch is the IF primitive: the instruction word at pc.
func fetch(mem *Memory, pc uint32) (uint32, error) {
	word, err := mem.Fetch32(pc)
	if err != nil {
		return 0, faultAt(err, pc)
	}
	return word, nil
}

// decodeAt is the ID primitive, stamping failures with the PC.
func decodeAt(word, pc uint32) (Inst, error) {
	inst, err := Decode(word)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.PC = pc
		}
		return Inst{}, err
	}
	return inst, nil
}

// regRead is the ID register-read primitive: the pair of source operand
// values, zero for unused sources.
func regRead(cpu *CPU, inst Inst) (uint32, uint32) {
	return cpu.Regs.Read(inst.Rs1), cpu.Regs.Read(inst.Rs2)
}

// execOut is everything EX can produce in one cycle.
type execOut struct {
	// Result is the value destined for rd: the ALU result, the U-type
	// value, or the link value for jumps. For loads and stores it is
	// the effective address.
	Result uint32

	// Taken and Target resolve control flow for branches and jumps.
	Taken  bool
	Target uint32

	// Exit is the program-termination ECALL; Status its exit code.
	Exit   bool
	Status uint32
}

// execute is the EX primitive. op1 and op2 are the operand values after
// any forwarding.
func execute(cpu *CPU, mem *Memory, inst Inst, pc, op1, op2 uint32) (execOut, error) {
	var out execOut

	switch inst.Op {
	case OpLUI:
		out.Result = uint32(inst.Imm)
	case OpAUIPC:
		out.Result = pc + uint32(inst.Imm)
	case OpJAL:
		out.Result = pc + 4
		out.Target = pc + uint32(inst.Imm)
		out.Taken = true
	case OpJALR:
		out.Result = pc + 4
		out.Target = (op1 + uint32(inst.Imm)) &^ 1
		out.Taken = true
	case OpBranch:
		out.Taken = branchTaken(inst.Fn, op1, op2)
		out.Target = pc + uint32(inst.Imm)
	case OpLoad, OpStore:
		out.Result = op1 + uint32(inst.Imm)
	case OpSystem:
		// op1 is a0, op2 is a7 per the decoded implicit sources.
		// EBREAK terminates like exit with the current a0.
		if inst.Fn == FnEBREAK {
			out.Result, out.Exit, out.Status = op1, true, op1
			return out, nil
		}
		result, exit, err := syscall(cpu, mem, op2, op1, pc)
		if err != nil {
			return out, err
		}
		out.Result = result
		out.Exit = exit
		out.Status = op1
	default:
		src2 := op2
		if inst.ALUImm {
			src2 = uint32(inst.Imm)
		}
		out.Result = alu(inst.ALUOp, op1, src2)
	}

	return out, nil
}

// memAccess is the MEM primitive. It performs the load or store and
// returns the definitive write-back value: the loaded value for loads,
// the EX result for everything else.
func memAccess(mem *Memory, inst Inst, pc, result, storeVal uint32) (uint32, error) {
	switch {
	case inst.MemRead:
		addr := result
		var v uint32
		var err error
		switch inst.Fn {
		case FnLB:
			v, err = mem.Read8S(addr)
		case FnLBU:
			v, err = mem.Read8(addr)
		case FnLH:
			v, err = mem.Read16S(addr)
		case FnLHU:
			v, err = mem.Read16(addr)
		default:
			v, err = mem.Read32(addr)
		}
		if err != nil {
			return 0, faultAt(err, pc)
		}
		return v, nil
	case inst.MemWrite:
		addr := result
		var err error
		switch inst.Fn {
		case FnSB:
			err = mem.Write8(addr, storeVal)
		case FnSH:
			err = mem.Write16(addr, storeVal)
		default:
			err = mem.Write32(addr, storeVal)
		}
		if err != nil {
			return 0, faultAt(err, pc)
		}
		return result, nil
	default:
		return result, nil
	}
}

// writeBack is the WB primitive. Bubbles and x0 destinations commit
// nothing.
func writeBack(cpu *CPU, inst Inst, wb uint32) {
	if inst.RegWrite && !inst.IsBubble() {
		cpu.Regs.Write(inst.Rd, wb)
	}
}
