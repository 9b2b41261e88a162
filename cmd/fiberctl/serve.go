package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/brenohof/fiberspace/fiber"
)

// telemetryServer streams scheduler ring snapshots to connected websocket
// clients, one JSON message per (coalesced) Subscribe notification. Grounded
// on vango's devServer (cmd/vango/dev.go): an upgrader, a client set guarded
// by a mutex, and a broadcast helper. A slow client delays the broadcast
// goroutine, not the scheduler; a failed write is logged, not retried.
type telemetryServer struct {
	sched    *fiber.Scheduler
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

type telemetryMessage struct {
	Type   string            `json:"type"`
	Fibers []fiber.FiberInfo `json:"fibers,omitempty"`
	Stats  *fiber.Snapshot   `json:"stats,omitempty"`
}

func newServeCommand() *cobra.Command {
	var addr string
	var workers int
	var slice time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream scheduler telemetry over a websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := fiber.DefaultConfig()
			if slice > 0 {
				cfg.Slice = slice
			}
			sched := fiber.NewScheduler(cfg)
			sched.Start()
			defer sched.Stop()

			for i := 0; i < workers; i++ {
				sched.Create(func(fiber.Val) {
					for {
						time.Sleep(15 * time.Millisecond)
						sched.Checkpoint()
					}
				}, nil)
			}

			ts := &telemetryServer{
				sched:   sched,
				clients: make(map[*websocket.Conn]bool),
				upgrader: websocket.Upgrader{
					CheckOrigin: func(r *http.Request) bool { return true },
				},
			}

			go ts.broadcastLoop()

			mux := http.NewServeMux()
			mux.HandleFunc("/telemetry", ts.handleWebSocket)

			srv := &http.Server{Addr: addr, Handler: mux}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()

			logger.Info("telemetry server listening", "addr", addr, "path", "/telemetry")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8089", "address to listen on")
	cmd.Flags().IntVar(&workers, "workers", 3, "number of perpetual demo fibers to run")
	cmd.Flags().DurationVar(&slice, "slice", 0, "override the scheduler's time slice (e.g. 10ms)")
	return cmd
}

// broadcastLoop relays one telemetry message per scheduler context switch to
// every connected client, coalescing bursts the same way Scheduler.Subscribe
// already does for fiberctl top.
func (ts *telemetryServer) broadcastLoop() {
	sub := ts.sched.Subscribe()
	for range sub {
		infos, stats := ts.sched.Snapshot()
		msg := telemetryMessage{Type: "snapshot", Fibers: infos, Stats: &stats}
		ts.broadcast(msg)
	}
}

func (ts *telemetryServer) broadcast(msg telemetryMessage) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	for conn := range ts.clients {
		if err := conn.WriteJSON(msg); err != nil {
			logger.Warn("telemetry write failed", "err", err)
		}
	}
}

func (ts *telemetryServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ts.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	ts.mu.Lock()
	ts.clients[conn] = true
	ts.mu.Unlock()

	defer func() {
		ts.mu.Lock()
		delete(ts.clients, conn)
		ts.mu.Unlock()
		conn.Close()
	}()

	infos, stats := ts.sched.Snapshot()
	initial := telemetryMessage{Type: "snapshot", Fibers: infos, Stats: &stats}
	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	// The protocol is server-push only; read and discard so the connection's
	// close (client going away) is still observed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
