// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/reelfeed/internal/models"
)

// Health returns the status of every dependency. It always answers 200;
// use HealthReady for load balancer checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.healthStatus())
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 503 until the websocket hub runs and every dependency is healthy.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := h.healthStatus()
	if status.Status != "healthy" {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error: &models.APIError{
				Code:    "NOT_READY",
				Message: "Service is not ready",
			},
		})
		return
	}
	respondData(w, http.StatusOK, status)
}

func (h *Handler) healthStatus() models.HealthStatus {
	components := make(map[string]models.ComponentHealth, len(h.checks)+1)
	healthy := true

	hub := models.ComponentHealth{Healthy: h.hub.Running(), State: "stopped"}
	if hub.Healthy {
		hub.State = "running"
	}
	components["websocket"] = hub
	healthy = healthy && hub.Healthy

	for name, check := range h.checks {
		c := check()
		components[name] = c
		healthy = healthy && c.Healthy
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	return models.HealthStatus{
		Status:     status,
		Version:    h.cfg.Version,
		Uptime:     time.Since(h.startTime).Seconds(),
		Sessions:   h.manager.Len(),
		Clients:    h.hub.GetClientCount(),
		Components: components,
	}
}
