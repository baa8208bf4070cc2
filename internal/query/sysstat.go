package query

import (
	"runtime"
	"runtime/metrics"
	"sync"
	"time"
)

const (
	cpuTotalMetric = "/cpu/classes/total:cpu-seconds"
	memTotalMetric = "/memory/classes/total:bytes"
	heapMetric     = "/memory/classes/heap/objects:bytes"
)

type usage struct {
	cpuPercent float64
	memPercent float64
	memMB      float64
	goroutines int
}

// cpuSampler derives process CPU load from the runtime's CPU accounting
// between two calls. The first call reports 0.
type cpuSampler struct {
	mu       sync.Mutex
	lastCPU  float64
	lastWall time.Time
}

func (c *cpuSampler) sample() usage {
	samples := []metrics.Sample{
		{Name: cpuTotalMetric},
		{Name: memTotalMetric},
		{Name: heapMetric},
	}
	metrics.Read(samples)

	u := usage{goroutines: runtime.NumGoroutine()}
	cpu := float64Value(samples[0])
	total := float64Value(samples[1])
	heap := float64Value(samples[2])
	if total > 0 {
		u.memPercent = heap / total * 100
		u.memMB = total / (1 << 20)
	}

	now := time.Now()
	c.mu.Lock()
	if !c.lastWall.IsZero() {
		wall := now.Sub(c.lastWall).Seconds() * float64(runtime.GOMAXPROCS(0))
		if wall > 0 && cpu >= c.lastCPU {
			u.cpuPercent = min((cpu-c.lastCPU)/wall*100, 100)
		}
	}
	c.lastCPU, c.lastWall = cpu, now
	c.mu.Unlock()
	return u
}

func float64Value(s metrics.Sample) float64 {
	switch s.Value.Kind() {
	case metrics.KindFloat64:
		return s.Value.Float64()
	case metrics.KindUint64:
		return float64(s.Value.Uint64())
	}
	return 0
}
