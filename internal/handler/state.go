package handler

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/xca-bot/xcaboard/internal/state"
)

// clientCounter reports how many dashboard sockets are currently open.
type clientCounter interface {
	Clients() int64
}

// StateHandler serves the aggregated dashboard snapshot and process health.
type StateHandler struct {
	store    *state.Store
	clients  clientCounter
	demoMode bool
	started  time.Time
}

func NewStateHandler(store *state.Store, clients clientCounter, demoMode bool) *StateHandler {
	return &StateHandler{
		store:    store,
		clients:  clients,
		demoMode: demoMode,
		started:  time.Now(),
	}
}

// RegisterRoutes registers the snapshot route. Health is registered
// separately by the caller so probes work without a session.
func (h *StateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.State)
}

// State returns the same snapshot the WebSocket pushes, for clients that
// poll instead.
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

type healthResponse struct {
	Status           string            `json:"status"`
	UptimeSeconds    float64           `json:"uptime_seconds"`
	DemoMode         bool              `json:"demo_mode"`
	BackendDown      bool              `json:"backend_down"`
	Channels         map[string]string `json:"channels"`
	WebsocketClients int64             `json:"websocket_clients"`
	DroppedSnapshots int64             `json:"dropped_snapshots"`
	Goroutines       int               `json:"goroutines"`
	PID              int               `json:"pid"`
	CPUPercent       float64           `json:"cpu_percent"`
	MemoryRSSBytes   uint64            `json:"memory_rss_bytes"`
	SystemMemPercent float64           `json:"system_mem_percent"`
}

func (h *StateHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()

	resp := healthResponse{
		Status:           "ok",
		UptimeSeconds:    time.Since(h.started).Seconds(),
		DemoMode:         h.demoMode,
		BackendDown:      snap.BackendDown,
		Channels:         snap.Channels,
		DroppedSnapshots: h.store.Dropped(),
		Goroutines:       runtime.NumGoroutine(),
		PID:              os.Getpid(),
	}
	if h.clients != nil {
		resp.WebsocketClients = h.clients.Clients()
	}

	// Process stats are best effort; the endpoint stays useful on platforms
	// where gopsutil cannot read them.
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			resp.CPUPercent = cpu
		}
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			resp.MemoryRSSBytes = info.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		resp.SystemMemPercent = vm.UsedPercent
	}

	writeJSON(w, http.StatusOK, resp)
}
