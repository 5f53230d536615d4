package server

import (
	"math"
	"runtime"
	"time"

	"github.com/cshum/pixbright"
)

var start = time.Now()

const mb float64 = 1024 * 1024

// HealthStats process stats of GET /health
type HealthStats struct {
	Version         string  `json:"version"`
	Uptime          int64   `json:"uptime"`
	AllocatedMemory float64 `json:"allocated_memory"`
	HeapAllocated   float64 `json:"heap_allocated"`
	ObjectsInUse    uint64  `json:"objects_in_use"`
	Goroutines      int     `json:"goroutines"`
	GCCycles        uint32  `json:"gc_cycles"`
	NumberOfCPUs    int     `json:"number_of_cpus"`
}

// GetHealthStats reads runtime memory stats in megabytes
func GetHealthStats() *HealthStats {
	mem := &runtime.MemStats{}
	runtime.ReadMemStats(mem)
	return &HealthStats{
		Version:         pixbright.Version,
		Uptime:          int64(time.Since(start).Seconds()),
		AllocatedMemory: toMegaBytes(mem.Alloc),
		HeapAllocated:   toMegaBytes(mem.HeapAlloc),
		ObjectsInUse:    mem.Mallocs - mem.Frees,
		Goroutines:      runtime.NumGoroutine(),
		GCCycles:        mem.NumGC,
		NumberOfCPUs:    runtime.NumCPU(),
	}
}

func toMegaBytes(bytes uint64) float64 {
	return math.Round(float64(bytes)/mb*100) / 100
}
