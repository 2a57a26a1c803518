package sim

import "fmt"

var fnNames = [...]string{
	FnLUI:    "lui",
	FnAUIPC:  "auipc",
	FnJAL:    "jal",
	FnJALR:   "jalr",
	FnBEQ:    "beq",
	FnBNE:    "bne",
	FnBLT:    "blt",
	FnBGE:    "bge",
	FnBLTU:   "bltu",
	FnBGEU:   "bgeu",
	FnLB:     "lb",
	FnLH:     "lh",
	FnLW:     "lw",
	FnLBU:    "lbu",
	FnLHU:    "lhu",
	FnSB:     "sb",
	FnSH:     "sh",
	FnSW:     "sw",
	FnADDI:   "addi",
	FnSLTI:   "slti",
	FnSLTIU:  "sltiu",
	FnXORI:   "xori",
	FnORI:    "ori",
	FnANDI:   "andi",
	FnSLLI:   "slli",
	FnSRLI:   "srli",
	FnSRAI:   "srai",
	FnADD:    "add",
	FnSUB:    "sub",
	FnSLL:    "sll",
	FnSLT:    "slt",
	FnSLTU:   "sltu",
	FnXOR:    "xor",
	FnSRL:    "srl",
	FnSRA:    "sra",
	FnOR:     "or",
	FnAND:    "and",
	FnECALL:  "ecall",
	FnEBREAK: "ebreak",
}

// String renders the instruction for the trace.
func (i Inst) String() string {
	name := fnNames[i.Fn]
	switch i.Op {
	case OpLUI, OpAUIPC:
		return fmt.Sprintf("%s x%d, %#x", name, i.Rd, uint32(i.Imm)>>12)
	case OpJAL:
		return fmt.Sprintf("%s x%d, %d", name, i.Rd, i.Imm)
	case OpJALR:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, i.Rd, i.Imm, i.Rs1)
	case OpBranch:
		return fmt.Sprintf("%s x%d, x%d, %d", name, i.Rs1, i.Rs2, i.Imm)
	case OpLoad:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, i.Rd, i.Imm, i.Rs1)
	case OpStore:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, i.Rs2, i.Imm, i.Rs1)
	case OpOpImm:
		return fmt.Sprintf("%s x%d, x%d, %d", name, i.Rd, i.Rs1, i.Imm)
	case OpOp:
		return fmt.Sprintf("%s x%d, x%d, x%d", name, i.Rd, i.Rs1, i.Rs2)
	default:
		return name
	}
}
