package sim

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// buildPipeline loads a program at address 0 and returns the machine
// with the trace captured.
func buildPipeline(policy Policy, words []uint32) (*CPU, *Memory, *Pipeline, *bytes.Buffer) {
	if policy.MaxCycles == 0 {
		policy.MaxCycles = 100000
	}
	cpu, mem := newMachine(policy)
	trace := new(bytes.Buffer)
	cpu.TraceOut = trace
	loadWords(mem, 0, words...)
	return cpu, mem, NewPipeline(cpu, mem), trace
}

func runPipelined(words []uint32) (*CPU, *Pipeline, int) {
	cpu, _, p, _ := buildPipeline(Policy{History: true}, words)
	status, err := p.Run()
	Expect(err).NotTo(HaveOccurred())
	return cpu, p, status
}

// committed extracts the non-bubble lines of a trace, without the
// cycle numbers, so two engines' streams can be compared.
func committed(trace string) []string {
	var out []string
	for _, line := range strings.Split(trace, "\n") {
		if strings.Contains(line, "pc=") {
			fields := strings.Fields(line)
			out = append(out, strings.Join(fields[2:], " "))
		}
	}
	return out
}

var _ = Describe("Pipeline", func() {
	Describe("forwarding", func() {
		It("resolves an ADDI dependency chain", func() {
			_, _, status := runPipelined(program(
				[]uint32{
					addi(1, 0, 5),
					addi(2, 1, 7),
					addi(3, 2, -3),
				},
				exitSeq(3),
			))
			Expect(status).To(Equal(9))
		})

		It("prefers the EX/MEM result over MEM/WB when both match", func() {
			_, _, status := runPipelined(program(
				[]uint32{
					addi(1, 0, 1),
					addi(1, 0, 2),
					add(2, 1, 0),
				},
				exitSeq(2),
			))
			// 1 here would mean the older MEM/WB value won.
			Expect(status).To(Equal(2))
		})

		It("supplies a value committing in the decode cycle (WB to ID)", func() {
			_, _, status := runPipelined(program(
				[]uint32{
					addi(1, 0, 9),
					addi(6, 0, 1),
					addi(7, 0, 2),
					add(8, 1, 1), // decodes exactly when x1 commits
				},
				exitSeq(8),
			))
			Expect(status).To(Equal(18))
		})

		It("forwards the store value", func() {
			_, _, status := runPipelined(program(
				[]uint32{
					addi(1, 0, 0x400),
					addi(2, 0, 42),
					sw(2, 1, 0), // x2 produced one cycle earlier
					lw(3, 1, 0),
					addi(4, 3, 0),
				},
				exitSeq(4),
			))
			Expect(status).To(Equal(42))
		})
	})

	Describe("load-use hazard", func() {
		scenario := program(
			[]uint32{
				addi(1, 0, 0x400),
				sw(0, 1, 0),
				addi(2, 0, 42),
				sw(2, 1, 0),
				lw(3, 1, 0),
				add(4, 3, 3),
			},
			exitSeq(4),
		)

		It("stalls exactly one cycle and still computes the right value", func() {
			cpu, _, status := runPipelined(scenario)
			Expect(status).To(Equal(84))
			Expect(cpu.History.Stalls).To(Equal(uint64(1)))
		})

		It("makes the bubble observable between the load and its consumer", func() {
			cpu, _, p, trace := buildPipeline(Policy{History: true}, scenario)
			_, err := p.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(cpu.History.Stalls).To(Equal(uint64(1)))

			lines := strings.Split(strings.TrimRight(trace.String(), "\n"), "\n")
			lwAt, addAt := -1, -1
			for i, line := range lines {
				if strings.Contains(line, "lw ") {
					lwAt = i
				}
				if strings.Contains(line, "add x4") {
					addAt = i
				}
			}
			Expect(lwAt).To(BeNumerically(">=", 0))
			Expect(addAt).To(Equal(lwAt + 2))
			Expect(lines[lwAt+1]).To(ContainSubstring("bubble"))
		})
	})

	Describe("branches and prediction", func() {
		It("mispredicts a first-seen taken branch and flushes the wrong path", func() {
			cpu, _, status := runPipelined(program(
				[]uint32{
					addi(1, 0, 0),
					beq(1, 0, 8), // taken; predictor starts weakly not taken
					addi(2, 0, 1),
				},
				exitSeq(2),
			))
			Expect(status).To(Equal(0))
			Expect(cpu.Regs.Read(2)).To(Equal(uint32(0)))
			Expect(cpu.History.Flushes).To(Equal(uint64(1)))
		})

		It("never commits an instruction fetched on the wrong path", func() {
			_, _, p, trace := buildPipeline(Policy{History: true}, program(
				[]uint32{
					addi(1, 0, 0),
					beq(1, 0, 8),
					addi(2, 0, 1), // speculative wrong path
				},
				exitSeq(2),
			))
			_, err := p.Run()
			Expect(err).NotTo(HaveOccurred())
			for _, line := range committed(trace.String()) {
				Expect(line).NotTo(ContainSubstring("pc=0x00000008"))
			}
		})

		It("converges a countdown loop to a taken prediction", func() {
			cpu, p, status := runPipelined(program(
				[]uint32{
					addi(5, 0, 10),
					addi(5, 5, -1),
					bne(5, 0, -4),
				},
				exitSeq(0),
			))
			Expect(status).To(Equal(0))
			Expect(cpu.Regs.Read(5)).To(Equal(uint32(0)))
			// One flush entering the loop (first taken, predicted not
			// taken) and one leaving it (last not taken, predicted
			// taken).
			Expect(cpu.History.Flushes).To(Equal(uint64(2)))
			// Counter saturated at strongly taken, minus the final
			// not-taken decrement.
			b := p.pred.(*bimodal)
			Expect(b.counters[b.index(8)]).To(Equal(weaklyTaken))
		})

		It("runs the loop correctly under always-not-taken", func() {
			cpu, _, p, _ := buildPipeline(Policy{Heuristic: AlwaysNotTaken}, program(
				[]uint32{
					addi(5, 0, 10),
					addi(5, 5, -1),
					bne(5, 0, -4),
				},
				exitSeq(5),
			))
			status, err := p.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(0))
			// Every taken iteration mispredicts; the final fall-through
			// is the only branch it gets right.
			Expect(cpu.History.Flushes).To(Equal(uint64(9)))
		})
	})

	Describe("jumps", func() {
		It("links JAL and returns through JALR", func() {
			_, _, status := runPipelined(program(
				[]uint32{
					jal(1, 12),      //  0: call f
					addi(2, 0, 7),   //  4: after return
					jal(0, 16),      //  8: skip over f to the exit
					addi(2, 0, 9),   // 12: f
					jalr(0, 1, 0),   // 16: return to 4
					addi(0, 0, 0),   // 20: (not reached)
				},
				exitSeq(2), // 24
			))
			Expect(status).To(Equal(7))
		})

		It("clears bit 0 of a JALR target", func() {
			_, _, status := runPipelined(program(
				[]uint32{
					addi(1, 0, 13), // odd target, rounds down to 12
					jalr(0, 1, 0),
					addi(2, 0, 1), // 8: skipped
					addi(2, 0, 5), // 12
				},
				exitSeq(2),
			))
			Expect(status).To(Equal(5))
		})
	})

	Describe("x0 invariant", func() {
		It("reads zero at every cycle boundary even when written", func() {
			cpu, _, p, _ := buildPipeline(Policy{}, program(
				[]uint32{
					addi(0, 0, 55),
					add(0, 0, 0),
					addi(1, 0, 3),
					add(0, 1, 1),
				},
				exitSeq(0),
			))
			for !p.Halted() {
				Expect(p.Tick()).To(Succeed())
				Expect(cpu.Regs.Read(0)).To(Equal(uint32(0)))
			}
			Expect(p.ExitStatus()).To(Equal(uint32(0)))
		})
	})

	Describe("faults", func() {
		It("reports a decode failure with its PC", func() {
			_, _, p, _ := buildPipeline(Policy{}, []uint32{
				addi(1, 0, 1),
				0xFFFFFFFF,
			})
			_, err := p.Run()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("pc=0x00000004"))
		})

		It("reports a load from unmapped memory", func() {
			_, _, p, _ := buildPipeline(Policy{}, program(
				[]uint32{
					lui(1, 0x40000),
					lw(2, 1, 0),
				},
				exitSeq(0),
			))
			_, err := p.Run()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("memory fault"))
		})

		It("ignores a speculative fetch past the end of mapped memory", func() {
			// The exit sequence sits in the last words of the mapped
			// region; fetch runs past it before EX resolves the ECALL.
			cpu, mem, _, _ := buildPipeline(Policy{}, nil)
			loadWords(mem, 0x10000-12, exitSeq(0)...)
			cpu.PC = 0x10000 - 12
			p := NewPipeline(cpu, mem)
			status, err := p.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(0))
		})

		It("faults when execution really runs off the map", func() {
			cpu, mem, _, _ := buildPipeline(Policy{}, nil)
			cpu.PC = 0x20000
			p := NewPipeline(cpu, mem)
			_, err := p.Run()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("memory fault"))
		})
	})

	Describe("halt", func() {
		It("commits everything ahead of the ECALL before halting", func() {
			cpu, _, status := runPipelined(program(
				[]uint32{addi(5, 0, 31)},
				exitSeq(5),
			))
			Expect(status).To(Equal(31))
			// The instruction right before the ECALL still wrote back.
			Expect(cpu.Regs.Read(17)).To(Equal(uint32(93)))
			Expect(cpu.Regs.Read(5)).To(Equal(uint32(31)))
		})
	})
})
