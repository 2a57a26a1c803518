package sim

// Opcode is the RV32I opcode family of an instruction.
type Opcode uint8

const (
	OpLUI Opcode = iota
	OpAUIPC
	OpJAL
	OpJALR
	OpBranch
	OpLoad
	OpStore
	OpOpImm
	OpOp
	OpSystem
)

// Fn is the specific operation within a family, e.g. BEQ or SRA.
type Fn uint8

const (
	FnLUI Fn = iota
	FnAUIPC
	FnJAL
	FnJALR
	FnBEQ
	FnBNE
	FnBLT
	FnBGE
	FnBLTU
	FnBGEU
	FnLB
	FnLH
	FnLW
	FnLBU
	FnLHU
	FnSB
	FnSH
	FnSW
	FnADDI
	FnSLTI
	FnSLTIU
	FnXORI
	FnORI
	FnANDI
	FnSLLI
	FnSRLI
	FnSRAI
	FnADD
	FnSUB
	FnSLL
	FnSLT
	FnSLTU
	FnXOR
	FnSRL
	FnSRA
	FnOR
	FnAND
	FnECALL
	FnEBREAK
)

// Inst is the decoded instruction record. It carries everything the
// downstream stages need; the raw word is kept only for diagnostics and
// bubble identification.
type Inst struct {
	Raw uint32
	Op  Opcode
	Fn  Fn

	// Register indices. Unused sources/destinations are 0, which the
	// hazard predicates already exclude.
	Rd  uint32
	Rs1 uint32
	Rs2 uint32

	// Sign-extended immediate where the format has one.
	Imm int32

	// Control signals.
	RegWrite bool
	MemRead  bool
	MemWrite bool
	Branch   bool   // conditional branch or jump
	MemStep  uint32 // access width in bytes for loads/stores
	ALUOp    ALUOp
	ALUImm   bool // ALU operand 2 comes from the immediate
}

// IsBubble reports whether this is the canonical NOP used for bubbles.
func (i Inst) IsBubble() bool { return i.Raw == NOP }

// Bubble returns the latch filler instruction.
func Bubble() Inst {
	i, _ := Decode(NOP)
	return i
}

var branchFns = [8]Fn{
	0b000: FnBEQ,
	0b001: FnBNE,
	0b100: FnBLT,
	0b101: FnBGE,
	0b110: FnBLTU,
	0b111: FnBGEU,
}

var loadFns = [8]Fn{
	0b000: FnLB,
	0b001: FnLH,
	0b010: FnLW,
	0b100: FnLBU,
	0b101: FnLHU,
}

var storeFns = [8]Fn{
	0b000: FnSB,
	0b001: FnSH,
	0b010: FnSW,
}

// Decode maps a 32-bit word to its decoded record. It is a pure function
// with no side effects and may be called any number of times per cycle.
// Words that match no RV32I pattern return a DecodeError with PC unset.
func Decode(word uint32) (Inst, error) {
	inst := Inst{Raw: word}
	f3 := funct3Field(word)
	f7 := funct7Field(word)

	switch opcodeField(word) {
	case 0x37:
		inst.Op, inst.Fn = OpLUI, FnLUI
		inst.Rd = rdField(word)
		inst.Imm = immU(word)
	case 0x17:
		inst.Op, inst.Fn = OpAUIPC, FnAUIPC
		inst.Rd = rdField(word)
		inst.Imm = immU(word)
	case 0x6F:
		inst.Op, inst.Fn = OpJAL, FnJAL
		inst.Rd = rdField(word)
		inst.Imm = immJ(word)
		inst.Branch = true
	case 0x67:
		if f3 != 0 {
			return Inst{}, &DecodeError{Word: word}
		}
		inst.Op, inst.Fn = OpJALR, FnJALR
		inst.Rd = rdField(word)
		inst.Rs1 = rs1Field(word)
		inst.Imm = immI(word)
		inst.Branch = true
	case 0x63:
		if f3 == 0b010 || f3 == 0b011 {
			return Inst{}, &DecodeError{Word: word}
		}
		inst.Op, inst.Fn = OpBranch, branchFns[f3]
		inst.Rs1 = rs1Field(word)
		inst.Rs2 = rs2Field(word)
		inst.Imm = immB(word)
		inst.Branch = true
	case 0x03:
		if f3 == 0b011 || f3 >= 0b110 {
			return Inst{}, &DecodeError{Word: word}
		}
		inst.Op, inst.Fn = OpLoad, loadFns[f3]
		inst.Rd = rdField(word)
		inst.Rs1 = rs1Field(word)
		inst.Imm = immI(word)
		inst.MemRead = true
		inst.MemStep = loadStoreStep(inst.Fn)
		inst.ALUImm = true
	case 0x23:
		if f3 > 0b010 {
			return Inst{}, &DecodeError{Word: word}
		}
		inst.Op, inst.Fn = OpStore, storeFns[f3]
		inst.Rs1 = rs1Field(word)
		inst.Rs2 = rs2Field(word)
		inst.Imm = immS(word)
		inst.MemWrite = true
		inst.MemStep = loadStoreStep(inst.Fn)
		inst.ALUImm = true
	case 0x13:
		inst.Op = OpOpImm
		inst.Rd = rdField(word)
		inst.Rs1 = rs1Field(word)
		inst.ALUImm = true
		switch f3 {
		case 0b000:
			inst.Fn = FnADDI
		case 0b010:
			inst.Fn = FnSLTI
		case 0b011:
			inst.Fn = FnSLTIU
		case 0b100:
			inst.Fn = FnXORI
		case 0b110:
			inst.Fn = FnORI
		case 0b111:
			inst.Fn = FnANDI
		case 0b001:
			if f7 != 0 {
				return Inst{}, &DecodeError{Word: word}
			}
			inst.Fn = FnSLLI
		case 0b101:
			switch f7 {
			case 0x00:
				inst.Fn = FnSRLI
			case 0x20:
				inst.Fn = FnSRAI
			default:
				return Inst{}, &DecodeError{Word: word}
			}
		}
		if inst.Fn == FnSLLI || inst.Fn == FnSRLI || inst.Fn == FnSRAI {
			// shamt lives in the rs2 slot
			inst.Imm = int32(rs2Field(word))
		} else {
			inst.Imm = immI(word)
		}
	case 0x33:
		inst.Op = OpOp
		inst.Rd = rdField(word)
		inst.Rs1 = rs1Field(word)
		inst.Rs2 = rs2Field(word)
		switch {
		case f3 == 0b000 && f7 == 0x00:
			inst.Fn = FnADD
		case f3 == 0b000 && f7 == 0x20:
			inst.Fn = FnSUB
		case f3 == 0b001 && f7 == 0x00:
			inst.Fn = FnSLL
		case f3 == 0b010 && f7 == 0x00:
			inst.Fn = FnSLT
		case f3 == 0b011 && f7 == 0x00:
			inst.Fn = FnSLTU
		case f3 == 0b100 && f7 == 0x00:
			inst.Fn = FnXOR
		case f3 == 0b101 && f7 == 0x00:
			inst.Fn = FnSRL
		case f3 == 0b101 && f7 == 0x20:
			inst.Fn = FnSRA
		case f3 == 0b110 && f7 == 0x00:
			inst.Fn = FnOR
		case f3 == 0b111 && f7 == 0x00:
			inst.Fn = FnAND
		default:
			return Inst{}, &DecodeError{Word: word}
		}
	case 0x73:
		inst.Op = OpSystem
		switch word {
		case 0x00000073:
			inst.Fn = FnECALL
		case 0x00100073:
			inst.Fn = FnEBREAK
		default:
			return Inst{}, &DecodeError{Word: word}
		}
		// ECALL implicitly reads a0 (argument) and a7 (code) and writes
		// a0, so the forwarding predicates see real dependencies.
		inst.Rs1 = regA0
		inst.Rs2 = regA7
		inst.Rd = regA0
	default:
		return Inst{}, &DecodeError{Word: word}
	}

	inst.RegWrite = inst.Op != OpBranch && inst.Op != OpStore
	inst.ALUOp = aluOpFor(inst.Fn)
	return inst, nil
}

func loadStoreStep(fn Fn) uint32 {
	switch fn {
	case FnLB, FnLBU, FnSB:
		return 1
	case FnLH, FnLHU, FnSH:
		return 2
	default:
		return 4
	}
}

func aluOpFor(fn Fn) ALUOp {
	switch fn {
	case FnSUB:
		return ALUSub
	case FnSLT, FnSLTI:
		return ALUSlt
	case FnSLTU, FnSLTIU:
		return ALUSltu
	case FnXOR, FnXORI:
		return ALUXor
	case FnOR, FnORI:
		return ALUOr
	case FnAND, FnANDI:
		return ALUAnd
	case FnSLL, FnSLLI:
		return ALUSll
	case FnSRL, FnSRLI:
		return ALUSrl
	case FnSRA, FnSRAI:
		return ALUSra
	default:
		return ALUAdd
	}
}
