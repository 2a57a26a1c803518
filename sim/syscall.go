package sim

import "fmt"

// ECALL codes, selected by a7. Exit follows the Linux RV32 convention;
// the host I/O codes are the simulator's own surface.
const (
	SysPrintString uint32 = 0
	SysPrintChar   uint32 = 1
	SysPrintInt    uint32 = 2
	SysReadChar    uint32 = 4
	SysReadInt     uint32 = 5
	SysExit        uint32 = 93
)

// syscall handles one ECALL. arg is a0; the returned value becomes the
// new a0 (unchanged unless the call produces one). exit reports the
// program-termination call, whose status is arg.
func syscall(cpu *CPU, mem *Memory, code, arg, pc uint32) (result uint32, exit bool, err error) {
	result = arg

	switch code {
	case SysExit:
		exit = true
	case SysPrintString:
		for addr := arg; ; addr++ {
			ch, err := mem.Read8(addr)
			if err != nil {
				return 0, false, faultAt(err, pc)
			}
			if ch == 0 {
				break
			}
			fmt.Fprintf(cpu.Stdout, "%c", byte(ch))
		}
	case SysPrintChar:
		fmt.Fprintf(cpu.Stdout, "%c", byte(arg))
	case SysPrintInt:
		fmt.Fprintf(cpu.Stdout, "%d", int32(arg))
	case SysReadChar:
		var b [1]byte
		if _, err := cpu.Stdin.Read(b[:]); err != nil {
			return 0, false, fmt.Errorf("read char: %w", err)
		}
		result = uint32(b[0])
	case SysReadInt:
		var n int32
		if _, err := fmt.Fscan(cpu.Stdin, &n); err != nil {
			return 0, false, fmt.Errorf("read int: %w", err)
		}
		result = uint32(n)
	default:
		return 0, false, &SyscallError{Code: code, PC: pc}
	}

	return result, exit, nil
}
