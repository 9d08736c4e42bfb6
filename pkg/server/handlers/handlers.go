// Package handlers contains the application content handlers: the root
// greeting, the runtime info endpoint, and the not-found fallback.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/user"
	"runtime"
	"time"

	"bastion-hq/bastion/pkg/content"
)

// Version is the application version reported by the root endpoint. It is
// overridden at build time via -ldflags.
var Version = "1.0.0"

// Greeting is the response body of the root endpoint.
type Greeting struct {
	Message     string    `json:"message"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Timestamp   time.Time `json:"timestamp"`
	GoVersion   string    `json:"go_version"`
}

// NotFoundResponse is the body returned for unmatched paths.
type NotFoundResponse struct {
	Error string `json:"error"`
	Path  string `json:"path"`
}

// Root returns the handler for the root path. When a content store is
// configured it serves the cached file; otherwise it returns the JSON
// greeting. Any path other than "/" falls through to NotFound, so routing
// stays exact-match.
func Root(message, environment string, store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			NotFound(w, r)
			return
		}

		if store != nil {
			data, err := store.Get()
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to read content file",
					"file", store.Path(),
					"error", err,
				)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error": "Internal Server Error",
				})
				return
			}

			w.Header().Set("Content-Type", http.DetectContentType(data))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}

		writeJSON(w, http.StatusOK, Greeting{
			Message:     message,
			Version:     Version,
			Environment: environment,
			Timestamp:   time.Now().UTC(),
			GoVersion:   runtime.Version(),
		})
	}
}

// InfoResponse is the body of the runtime info endpoint.
type InfoResponse struct {
	Runtime RuntimeInfo `json:"runtime"`
	Process ProcessInfo `json:"process"`
	System  SystemInfo  `json:"system"`
}

// RuntimeInfo describes the Go runtime.
type RuntimeInfo struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
}

// ProcessInfo describes the running process.
type ProcessInfo struct {
	PID  int    `json:"pid"`
	User string `json:"user"`
	CWD  string `json:"cwd"`
}

// SystemInfo describes the host environment visible to the process.
type SystemInfo struct {
	CPUCount       int    `json:"cpu_count"`
	MemoryObtained uint64 `json:"memory_obtained"`
}

// Info returns the handler for the runtime info endpoint.
func Info() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cwd, _ := os.Getwd()

		var username string
		if u, err := user.Current(); err == nil {
			username = u.Username
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		writeJSON(w, http.StatusOK, InfoResponse{
			Runtime: RuntimeInfo{
				Version:  runtime.Version(),
				Platform: runtime.GOOS,
				Arch:     runtime.GOARCH,
			},
			Process: ProcessInfo{
				PID:  os.Getpid(),
				User: username,
				CWD:  cwd,
			},
			System: SystemInfo{
				CPUCount:       runtime.NumCPU(),
				MemoryObtained: mem.Sys,
			},
		})
	}
}

// NotFound responds with a 404 JSON body echoing the requested path.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, NotFoundResponse{
		Error: "Not Found",
		Path:  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
