package sim

// Hazard predicates over the pipeline latches. All of them exclude x0:
// a zero source never needs forwarding and a bubble's destination is 0,
// so bubbles can never match.

// exHazardOp1 reports that operand 1 of the instruction in ID/EX must be
// forwarded from the EX/MEM result. EX/MEM holds the more recent write,
// so this takes strict priority over the MEM/WB path.
func exHazardOp1(l *Latches) bool {
	return l.IDEX.Inst.Rs1 != 0 &&
		l.EXMEM.Valid && l.EXMEM.Inst.RegWrite &&
		l.EXMEM.Inst.Rd == l.IDEX.Inst.Rs1
}

func exHazardOp2(l *Latches) bool {
	return l.IDEX.Inst.Rs2 != 0 &&
		l.EXMEM.Valid && l.EXMEM.Inst.RegWrite &&
		l.EXMEM.Inst.Rd == l.IDEX.Inst.Rs2
}

// memHazardOp1 reports that operand 1 must be forwarded from the MEM/WB
// write-back value. Only consulted when the EX/MEM path does not match.
func memHazardOp1(l *Latches) bool {
	return l.IDEX.Inst.Rs1 != 0 &&
		l.MEMWB.Valid && l.MEMWB.Inst.RegWrite &&
		l.MEMWB.Inst.Rd == l.IDEX.Inst.Rs1
}

func memHazardOp2(l *Latches) bool {
	return l.IDEX.Inst.Rs2 != 0 &&
		l.MEMWB.Valid && l.MEMWB.Inst.RegWrite &&
		l.MEMWB.Inst.Rd == l.IDEX.Inst.Rs2
}

// wbHazard reports that a source of the instruction being decoded is
// written back this very cycle, so the start-of-cycle register read
// would miss it. The producer is then three slots ahead, which the
// load-use stall also brings about: the instruction after the load's
// consumer decodes exactly when the load commits. Any closer
// producer is handled by the EX-stage paths above, which override the
// value read here.
func wbHazard(l *Latches, rs uint32) bool {
	return rs != 0 &&
		l.MEMWB.Valid && l.MEMWB.Inst.RegWrite &&
		l.MEMWB.Inst.Rd == rs
}

// forwardOp1 selects the EX operand 1 value per the predicates.
func forwardOp1(l *Latches) uint32 {
	switch {
	case exHazardOp1(l):
		return l.EXMEM.Result
	case memHazardOp1(l):
		return l.MEMWB.WBValue
	default:
		return l.IDEX.Op1
	}
}

func forwardOp2(l *Latches) uint32 {
	switch {
	case exHazardOp2(l):
		return l.EXMEM.Result
	case memHazardOp2(l):
		return l.MEMWB.WBValue
	default:
		return l.IDEX.Op2
	}
}

// loadUseHazard reports that the load in ID/EX produces a register the
// instruction in IF/ID consumes. Forwarding cannot resolve this because
// the value only exists after MEM; the driver stalls one cycle, after
// which the MEM/WB path covers it.
func loadUseHazard(l *Latches) bool {
	if !l.IDEX.Valid || !l.IDEX.Inst.MemRead || l.IDEX.Inst.Rd == 0 {
		return false
	}
	if !l.IFID.Valid || l.IFID.Err != nil {
		return false
	}
	next, err := Decode(l.IFID.Word)
	if err != nil {
		return false
	}
	return next.Rs1 == l.IDEX.Inst.Rd || next.Rs2 == l.IDEX.Inst.Rd
}
