package sim

// The four pipeline latches. Each cycle computes a fresh set from the
// previous one; latches are plain values and no stage mutates one in
// place, which is what enforces the read-previous/write-next rule.
//
// An invalid latch is an empty slot (pipeline fill or drain). A bubble
// is a valid latch holding the canonical NOP; both commit nothing.

// IFIDLatch sits between fetch and decode.
type IFIDLatch struct {
	Valid bool
	PC    uint32
	Word  uint32

	// Err is a fetch fault for a word that may still be on a
	// speculative path. It becomes fatal only if the slot survives to
	// decode into EX; a flush discards it.
	Err error
}

// IDEXLatch sits between decode and execute.
type IDEXLatch struct {
	Valid bool
	PC    uint32
	Inst  Inst

	// Register values as read in ID (before EX-stage forwarding).
	Op1 uint32
	Op2 uint32

	// TakenPC is the precomputed target of a conditional branch.
	TakenPC uint32
	// Predicted records whether fetch was redirected for this branch.
	Predicted bool

	// Err is a deferred fetch/decode fault, see IFIDLatch.Err.
	Err error
}

// EXMEMLatch sits between execute and memory access.
type EXMEMLatch struct {
	Valid bool
	PC    uint32
	Inst  Inst

	// Result is the value destined for rd (address for loads/stores).
	Result uint32
	// StoreVal is the forwarded rs2 value for stores.
	StoreVal uint32

	// Branch resolution.
	Taken     bool
	Target    uint32
	Predicted bool

	// Exit marks the program-termination ECALL with its status.
	Exit       bool
	ExitStatus uint32
}

// MEMWBLatch sits between memory access and write-back.
type MEMWBLatch struct {
	Valid bool
	PC    uint32
	Inst  Inst

	// WBValue is the definitive value for rd, known after MEM.
	WBValue uint32

	Exit       bool
	ExitStatus uint32
}

// Latches is one cycle's pipeline state.
type Latches struct {
	IFID  IFIDLatch
	IDEX  IDEXLatch
	EXMEM EXMEMLatch
	MEMWB MEMWBLatch
}

func bubbleIDEX(pc uint32) IDEXLatch {
	return IDEXLatch{Valid: true, PC: pc, Inst: Bubble()}
}

// committed reports whether this slot writes back a real instruction.
func (l MEMWBLatch) committed() bool {
	return l.Valid && !l.Inst.IsBubble()
}
