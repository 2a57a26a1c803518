package sim

// Run executes the loaded program under the engine selected by the
// CPU's policy and returns the program's exit status.
func Run(cpu *CPU, mem *Memory) (int, error) {
	var status int
	var err error
	switch cpu.Policy.Engine {
	case SingleCycle:
		status, err = RunSingleCycle(cpu, mem)
	default:
		status, err = NewPipeline(cpu, mem).Run()
	}
	if err != nil {
		return status, err
	}
	if cpu.Policy.History {
		cpu.PrintHistory()
	}
	return status, nil
}
