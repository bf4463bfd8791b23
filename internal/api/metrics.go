package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/annel0/bubble-world/internal/world"
)

// ServerSnapshot - сводка узла для /health и /api/stats
type ServerSnapshot struct {
	Uptime     string  `json:"uptime"`
	UptimeSec  int64   `json:"uptime_seconds"`
	Maps       int     `json:"maps"`
	Objects    int     `json:"objects"`
	Ticks      uint64  `json:"ticks"`
	HeapMB     float64 `json:"heap_mb"`
	RSSMB      float64 `json:"rss_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
}

// ServerMetrics собирает состояние карт реестра и процесса
type ServerMetrics struct {
	startTime time.Time
	registry  *world.Registry
}

func NewServerMetrics(registry *world.Registry) *ServerMetrics {
	return &ServerMetrics{startTime: time.Now(), registry: registry}
}

// Uptime возвращает время работы узла
func (sm *ServerMetrics) Uptime() time.Duration {
	return time.Since(sm.startTime)
}

// WorldCounts считает карты, объекты и тики по всем исполнителям
func (sm *ServerMetrics) WorldCounts() (maps, objects int, ticks uint64) {
	for _, runner := range sm.registry.Runners() {
		maps++
		ticks += runner.Ticks()
		runner.Do(func(m *world.Map) error {
			objects += m.ObjectCount()
			return nil
		})
	}
	return maps, objects, ticks
}

// Snapshot собирает сводку. withProcess включает замеры процесса через gopsutil.
func (sm *ServerMetrics) Snapshot(withProcess bool) ServerSnapshot {
	uptime := sm.Uptime()
	snap := ServerSnapshot{
		Uptime:     formatUptime(uptime),
		UptimeSec:  int64(uptime / time.Second),
		Goroutines: runtime.NumGoroutine(),
	}
	snap.Maps, snap.Objects, snap.Ticks = sm.WorldCounts()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snap.HeapMB = float64(mem.HeapAlloc) / 1024 / 1024

	if withProcess {
		snap.RSSMB, _ = processRSS()
		snap.CPUPercent, _ = processCPU()
	}
	return snap
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// processRSS возвращает резидентную память процесса в MB
func processRSS() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / 1024 / 1024, nil
}

// processCPU возвращает загрузку CPU процессом, при ошибке - системную
func processCPU() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if percent, err := proc.CPUPercent(); err == nil {
			return percent, nil
		}
	}
	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percents) == 0 {
		return 0, err
	}
	return percents[0], nil
}
