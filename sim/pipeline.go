package sim

// Pipeline is the five-stage in-order engine. It owns the architectural
// state for the duration of a run: each Tick reads the previous cycle's
// latches and writes the next cycle's, so later stages always see
// upstream values from one cycle ago and no stage can observe a partial
// update from its own cycle.
type Pipeline struct {
	cpu  *CPU
	mem  *Memory
	pred Predictor

	cur Latches

	// halting is set when EX sees the exit ECALL: fetch stops and the
	// pipe drains so every instruction ahead of the ECALL commits.
	halting    bool
	halted     bool
	exitStatus uint32
}

func NewPipeline(cpu *CPU, mem *Memory) *Pipeline {
	return &Pipeline{cpu: cpu, mem: mem, pred: NewPredictor(cpu.Policy.Heuristic)}
}

// Halted reports that the exit ECALL has committed.
func (p *Pipeline) Halted() bool { return p.halted }

// ExitStatus is the program's exit code once halted.
func (p *Pipeline) ExitStatus() uint32 { return p.exitStatus }

// Tick advances the machine by one cycle.
func (p *Pipeline) Tick() error {
	if p.halted {
		return nil
	}
	cpu := p.cpu
	cpu.History.Cycles++
	if cpu.StackOverflow() {
		return cpu.stackErr()
	}

	cur := &p.cur
	var next Latches

	// Front end: stall, drain, or fetch+decode.
	switch {
	case p.halting:
		// Fetch is stopped; empty slots drain through.
	case loadUseHazard(cur):
		cpu.History.Stalls++
		next.IFID = cur.IFID
		next.IDEX = bubbleIDEX(cur.IDEX.PC)
		cpu.verbosef("stall: load-use hazard, holding pc=%#010x", cur.IFID.PC)
	default:
		next.IDEX = p.decodeStage(cur)
		next.IFID = p.fetchStage()
	}

	// EX on the previous ID/EX latch, with forwarded operands.
	if cur.IDEX.Valid {
		if cur.IDEX.Err != nil {
			// The faulting fetch/decode survived every flush, so it is
			// on the committed path.
			return cur.IDEX.Err
		}
		op1 := forwardOp1(cur)
		op2 := forwardOp2(cur)
		out, err := execute(cpu, p.mem, cur.IDEX.Inst, cur.IDEX.PC, op1, op2)
		if err != nil {
			return err
		}
		next.EXMEM = EXMEMLatch{
			Valid:      true,
			PC:         cur.IDEX.PC,
			Inst:       cur.IDEX.Inst,
			Result:     out.Result,
			StoreVal:   op2,
			Taken:      out.Taken,
			Target:     out.Target,
			Predicted:  cur.IDEX.Predicted,
			Exit:       out.Exit,
			ExitStatus: out.Status,
		}
		if cur.IDEX.Inst.Op == OpBranch {
			next.EXMEM.Target = cur.IDEX.TakenPC
		}
	}

	// MEM on the previous EX/MEM latch.
	if cur.EXMEM.Valid {
		wb, err := memAccess(p.mem, cur.EXMEM.Inst, cur.EXMEM.PC, cur.EXMEM.Result, cur.EXMEM.StoreVal)
		if err != nil {
			return err
		}
		next.MEMWB = MEMWBLatch{
			Valid:      true,
			PC:         cur.EXMEM.PC,
			Inst:       cur.EXMEM.Inst,
			WBValue:    wb,
			Exit:       cur.EXMEM.Exit,
			ExitStatus: cur.EXMEM.ExitStatus,
		}
	}

	// WB commits the previous MEM/WB latch.
	if cur.MEMWB.committed() {
		writeBack(cpu, cur.MEMWB.Inst, cur.MEMWB.WBValue)
		cpu.History.Instructions++
		cpu.tracef("cycle %d  pc=0x%08x  %s", cpu.History.Cycles, cur.MEMWB.PC, cur.MEMWB.Inst)
	} else {
		cpu.tracef("cycle %d  bubble", cpu.History.Cycles)
	}
	if cur.MEMWB.Valid && cur.MEMWB.Exit {
		p.halted = true
		p.exitStatus = cur.MEMWB.ExitStatus
	}

	p.resolveControl(&next)

	// Predict for a conditional branch that just decoded. Its target is
	// already known from the immediate; on predict-taken the one
	// wrong-path fetch is squashed and fetch redirects.
	if !p.halting && next.IDEX.Valid && next.IDEX.Inst.Op == OpBranch {
		if p.pred.Predict(next.IDEX.PC) {
			cpu.verbosef("predict taken: pc=%#010x -> %#010x", next.IDEX.PC, next.IDEX.TakenPC)
			cpu.PC = next.IDEX.TakenPC
			next.IFID = IFIDLatch{}
			next.IDEX.Predicted = true
		}
	}

	p.cur = next
	return nil
}

// fetchStage produces the next IF/ID latch from the current PC. A fetch
// fault is deferred in the latch: the word may be on a wrong path and a
// flush will discard it.
func (p *Pipeline) fetchStage() IFIDLatch {
	pc := p.cpu.PC
	p.cpu.PC = pc + 4
	word, err := fetch(p.mem, pc)
	if err != nil {
		return IFIDLatch{Valid: true, PC: pc, Err: err}
	}
	p.cpu.verbosef("fetch: pc=%#010x word=%#010x", pc, word)
	return IFIDLatch{Valid: true, PC: pc, Word: word}
}

// decodeStage produces the next ID/EX latch from the current IF/ID
// latch. Registers are read as of the start of the cycle, with the
// WB-to-ID path supplying a value committing this same cycle.
func (p *Pipeline) decodeStage(cur *Latches) IDEXLatch {
	if !cur.IFID.Valid {
		return IDEXLatch{}
	}
	if cur.IFID.Err != nil {
		return IDEXLatch{Valid: true, PC: cur.IFID.PC, Inst: Bubble(), Err: cur.IFID.Err}
	}
	inst, err := decodeAt(cur.IFID.Word, cur.IFID.PC)
	if err != nil {
		return IDEXLatch{Valid: true, PC: cur.IFID.PC, Inst: Bubble(), Err: err}
	}

	op1, op2 := regRead(p.cpu, inst)
	if wbHazard(cur, inst.Rs1) {
		op1 = cur.MEMWB.WBValue
	}
	if wbHazard(cur, inst.Rs2) {
		op2 = cur.MEMWB.WBValue
	}

	l := IDEXLatch{Valid: true, PC: cur.IFID.PC, Inst: inst, Op1: op1, Op2: op2}
	if inst.Op == OpBranch {
		l.TakenPC = cur.IFID.PC + uint32(inst.Imm)
	}
	return l
}

// resolveControl acts on the instruction that just executed. It runs
// after the front end because its verdict overrides whatever IF and ID
// produced this cycle.
func (p *Pipeline) resolveControl(next *Latches) {
	cpu := p.cpu
	ex := &next.EXMEM
	if !ex.Valid || ex.Inst.IsBubble() {
		return
	}

	switch {
	case ex.Exit:
		p.halting = true
		next.IFID = IFIDLatch{}
		next.IDEX = IDEXLatch{}
	case ex.Inst.Op == OpJAL || ex.Inst.Op == OpJALR:
		// Jumps are unconditional: the target is authoritative and the
		// two speculatively fetched slots are squashed.
		cpu.verbosef("jump: pc=%#010x -> %#010x", ex.PC, ex.Target)
		cpu.PC = ex.Target
		next.IFID = IFIDLatch{}
		next.IDEX = IDEXLatch{}
		cpu.History.Flushes++
	case ex.Inst.Op == OpBranch:
		p.pred.Update(ex.PC, ex.Taken)
		if ex.Taken != ex.Predicted {
			target := ex.PC + 4
			if ex.Taken {
				target = ex.Target
			}
			cpu.verbosef("mispredict: pc=%#010x taken=%v predicted=%v -> %#010x",
				ex.PC, ex.Taken, ex.Predicted, target)
			cpu.PC = target
			next.IFID = IFIDLatch{}
			next.IDEX = IDEXLatch{}
			cpu.History.Flushes++
		}
	}
}

// Run ticks until the program exits or the cycle cap is hit.
func (p *Pipeline) Run() (int, error) {
	for !p.halted {
		if max := p.cpu.Policy.MaxCycles; max != 0 && p.cpu.History.Cycles >= max {
			return 1, &CycleLimitError{Limit: max}
		}
		if err := p.Tick(); err != nil {
			return 1, err
		}
	}
	return int(p.exitStatus), nil
}
