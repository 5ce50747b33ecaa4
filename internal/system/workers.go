package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// AllCores asks ResolveWorkers for one worker per logical CPU.
const AllCores = -1

// ResolveWorkers turns the configured worker setting into a pool size:
// 0 leaves one core free, AllCores uses every core, n > 0 is taken as is.
func ResolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	cores := logicalCores()
	if n == AllCores {
		return cores
	}
	if cores > 1 {
		return cores - 1
	}
	return 1
}

func logicalCores() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
