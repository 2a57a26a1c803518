package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/polyominal/rv32i-sim/sim"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: rv32i-sim [flags] <elf-file>\n")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("rv32i-sim: ")

	history := flag.Bool("history", false, "emit a per-cycle trace and a run summary")
	impl := flag.String("i", "P", "execution mode: P = pipelined, S = single-cycle")
	heur := flag.String("p", "BP", "branch prediction: BP = buffered, ANT = always not taken")
	verbose := flag.Bool("v", false, "verbose diagnostics on stderr")
	maxCycles := flag.Uint64("max-cycles", 0, "abort after this many cycles (0 = unlimited)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	policy := sim.Policy{
		Verbose:   *verbose,
		History:   *history,
		MaxCycles: *maxCycles,
	}
	switch strings.ToUpper(*impl) {
	case "P":
		policy.Engine = sim.Pipelined
	case "S":
		policy.Engine = sim.SingleCycle
	default:
		log.Fatalf("invalid execution mode %q: expected P or S", *impl)
	}
	switch strings.ToUpper(*heur) {
	case "BP":
		policy.Heuristic = sim.BufferedPrediction
	case "ANT":
		policy.Heuristic = sim.AlwaysNotTaken
	default:
		log.Fatalf("invalid prediction heuristic %q: expected BP or ANT", *heur)
	}

	cpu := sim.NewCPU(policy)
	mem := sim.NewMemory(sim.NewMMU())

	sim.SetStack(cpu, mem, sim.DefaultStackBase, sim.DefaultStackSize)
	if err := sim.LoadELF(flag.Arg(0), cpu, mem); err != nil {
		log.Fatal(err)
	}

	status, err := sim.Run(cpu, mem)
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(status)
}
