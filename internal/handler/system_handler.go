package handler

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/response"
)

// SystemHandler reports process health and the proctor queue backlog.
type SystemHandler struct {
	rdb           *redis.Client
	storageDriver string
	startTime     time.Time
	log           zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, storageDriver string, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:           rdb,
		storageDriver: storageDriver,
		startTime:     time.Now(),
		log:           log.With().Str("component", "system_handler").Logger(),
	}
}

type systemStatus struct {
	Timestamp     int64  `json:"timestamp"`
	Uptime        string `json:"uptime"`
	StorageDriver string `json:"storage_driver"`
	RedisEnabled  bool   `json:"redis_enabled"`

	// OS
	MemUsedBytes  uint64  `json:"mem_used_bytes"`
	MemTotalBytes uint64  `json:"mem_total_bytes"`
	LoadAvg1      float64 `json:"load_avg_1"`
	LoadAvg5      float64 `json:"load_avg_5"`
	LoadAvg15     float64 `json:"load_avg_15"`

	// Go Application
	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heap_alloc"`
	NumGC       uint32 `json:"num_gc"`
	AppRSSBytes uint64 `json:"app_rss_bytes"`
	GoVersion   string `json:"go_version"`
	NumCPU      int    `json:"num_cpu"`

	// Worker Queues
	QueueProctorEvents int64 `json:"queue_proctor_events"`
}

// Status godoc
// GET /api/v1/admin/system/status
func (h *SystemHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.collect(c))
}

func (h *SystemHandler) collect(c *gin.Context) systemStatus {
	s := systemStatus{
		Timestamp:     time.Now().Unix(),
		Uptime:        formatDuration(time.Since(h.startTime)),
		StorageDriver: h.storageDriver,
		RedisEnabled:  h.rdb != nil,
		GoVersion:     runtime.Version(),
		NumCPU:        runtime.NumCPU(),
	}

	// ── Memory ──
	if total, avail, err := readMemInfo(); err == nil && total > 0 {
		s.MemTotalBytes = total
		s.MemUsedBytes = total - avail
	}

	// ── Load Average ──
	s.LoadAvg1, s.LoadAvg5, s.LoadAvg15, _ = readLoadAvg()

	// ── Go Runtime ──
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.Goroutines = runtime.NumGoroutine()
	s.HeapAlloc = ms.HeapAlloc
	s.NumGC = ms.NumGC
	s.AppRSSBytes, _ = readProcessRSS()

	// ── Worker Queue ──
	if h.rdb != nil {
		n, err := h.rdb.LLen(c.Request.Context(), config.WorkerKey.PersistProctorEventsQueue).Result()
		if err != nil {
			h.log.Warn().Err(err).Msg("Proctor queue length unavailable")
		}
		s.QueueProctorEvents = n
	}

	return s
}

// ---------- /proc Readers ----------

// readMemInfo parses /proc/meminfo for MemTotal and MemAvailable.
func readMemInfo() (total, available uint64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	found := 0
	for scanner.Scan() && found < 2 {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			total = parseMemInfoValue(line)
			found++
		} else if strings.HasPrefix(line, "MemAvailable:") {
			available = parseMemInfoValue(line)
			found++
		}
	}
	return total, available, scanner.Err()
}

func parseMemInfoValue(line string) uint64 {
	// "MemTotal:       16384000 kB"
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	val, _ := strconv.ParseUint(fields[1], 10, 64)
	return val * 1024
}

func readLoadAvg() (load1, load5, load15 float64, err error) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, 0, 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return 0, 0, 0, fmt.Errorf("unexpected /proc/loadavg format")
	}
	load1, _ = strconv.ParseFloat(fields[0], 64)
	load5, _ = strconv.ParseFloat(fields[1], 64)
	load15, _ = strconv.ParseFloat(fields[2], 64)
	return load1, load5, load15, nil
}

// readProcessRSS reads VmRSS from /proc/self/status.
func readProcessRSS() (uint64, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "VmRSS:") {
			return parseMemInfoValue(line), nil
		}
	}
	return 0, fmt.Errorf("VmRSS not found")
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
