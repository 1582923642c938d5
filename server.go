package sirihub

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Handler builds the HTTP routing for the hub.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", h.handleHealth)

	mux.HandleFunc("/api/siri/vm.json", h.handleVM("json"))
	mux.HandleFunc("/api/siri/vm.xml", h.handleVM("xml"))
	mux.HandleFunc("/api/siri/et.json", h.handleET("json"))
	mux.HandleFunc("/api/siri/et.xml", h.handleET("xml"))
	mux.HandleFunc("/api/siri/sx.json", h.handleSX("json"))
	mux.HandleFunc("/api/siri/sx.xml", h.handleSX("xml"))
	mux.HandleFunc("/api/siri/pt.json", h.handlePT("json"))
	mux.HandleFunc("/api/siri/pt.xml", h.handlePT("xml"))

	mux.HandleFunc("/api/admin/stats", h.handleStats)
	mux.HandleFunc("/api/admin/requestors", h.handleRequestors)
	mux.HandleFunc("/api/admin/clear", h.handleClear)

	if h.cfg.Export.GTFSRTEnabled {
		mux.HandleFunc("/api/gtfsrt/vehicle-positions", h.handleGTFSRTVehiclePositions)
		mux.HandleFunc("/api/gtfsrt/trip-updates", h.handleGTFSRTTripUpdates)
		mux.HandleFunc("/api/gtfsrt/alerts", h.handleGTFSRTAlerts)
	}
	return mux
}

// StartServer starts serving in the background and returns immediately.
func (h *Hub) StartServer() {
	addr := fmt.Sprintf(":%d", h.cfg.Server.Port)
	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.WithError(err).Fatal("server error")
		}
	}()
	h.log.WithField("addr", addr).Info("server listening")
}

// RunServer serves until ctx is done, then shuts down gracefully.
func (h *Hub) RunServer(ctx context.Context) error {
	h.StartServer()
	<-ctx.Done()
	h.log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	h.log.Info("server shut down successfully")
	return ctx.Err()
}

// RunCleanup sweeps expired entities on the configured interval until
// ctx is done. A zero interval disables the sweep.
func (h *Hub) RunCleanup(ctx context.Context) error {
	interval := h.cfg.Repository.CleanupInterval()
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.RemoveExpired()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
