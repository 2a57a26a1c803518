package sim

import (
	"fmt"
	"io"
	"os"
)

// Engine selects the execution backend.
type Engine uint8

const (
	Pipelined Engine = iota
	SingleCycle
)

// Heuristic selects the branch prediction policy for the pipelined engine.
type Heuristic uint8

const (
	BufferedPrediction Heuristic = iota
	AlwaysNotTaken
)

// Policy configures a run. The zero value is the default: pipelined
// engine, buffered prediction, no trace, no cycle cap.
type Policy struct {
	Engine    Engine
	Heuristic Heuristic

	// Verbose enables per-cycle diagnostics on stderr.
	Verbose bool
	// History enables the per-cycle commit trace on TraceOut and the
	// summary lines after the run.
	History bool
	// MaxCycles aborts the run after this many cycles; 0 means no cap.
	MaxCycles uint64
}

// History accumulates run statistics.
type History struct {
	Cycles       uint64
	Instructions uint64
	Stalls       uint64
	Flushes      uint64
}

// CPI returns cycles per committed instruction.
func (h History) CPI() float64 {
	if h.Instructions == 0 {
		return 0
	}
	return float64(h.Cycles) / float64(h.Instructions)
}

// CPU is the architectural state shared by both engines: the program
// counter, the register file, and the run bookkeeping. The engines own
// it exclusively for the duration of a run.
type CPU struct {
	PC   uint32
	Regs RegFile

	Policy  Policy
	History History

	// Stack bounds set by the loader, checked each cycle.
	StackBase uint32
	StackSize uint32

	// Console endpoints for the ECALL surface.
	Stdin  io.Reader
	Stdout io.Writer
	// TraceOut receives the --history per-cycle trace.
	TraceOut io.Writer
}

// NewCPU returns a CPU wired to the host console.
func NewCPU(policy Policy) *CPU {
	return &CPU{
		Policy:   policy,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		TraceOut: os.Stdout,
	}
}

// StackOverflow reports SP below the carved-out stack region.
func (c *CPU) StackOverflow() bool {
	if c.StackSize == 0 {
		return false
	}
	return c.Regs.Read(regSP) < c.StackBase-c.StackSize
}

func (c *CPU) stackErr() error {
	return &StackOverflowError{SP: c.Regs.Read(regSP), Base: c.StackBase, Size: c.StackSize}
}

func (c *CPU) verbosef(format string, args ...any) {
	if c.Policy.Verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}

// tracef emits one line of the --history trace.
func (c *CPU) tracef(format string, args ...any) {
	if c.Policy.History {
		fmt.Fprintf(c.TraceOut, format+"\n", args...)
	}
}

// PrintHistory writes the run summary to stderr.
func (c *CPU) PrintHistory() {
	h := c.History
	fmt.Fprintf(os.Stderr, "[HISTORY] # instructions = %d\n", h.Instructions)
	fmt.Fprintf(os.Stderr, "[HISTORY] # cycles = %d, stalls = %d, flushes = %d\n",
		h.Cycles, h.Stalls, h.Flushes)
	fmt.Fprintf(os.Stderr, "[HISTORY] CPI = %.2f\n", h.CPI())
}
