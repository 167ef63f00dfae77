// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordAPIRequest tests API request metric recording
func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{"session open", "POST", "/api/v1/sessions", "201", 12 * time.Millisecond},
		{"counts lookup", "GET", "/api/v1/media/{key}/reactions", "200", 3 * time.Millisecond},
		{"unknown session", "GET", "/api/v1/sessions/{id}", "404", time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
			after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode))
			if after-before != 1 {
				t.Errorf("api_requests_total delta = %v, want 1", after-before)
			}
		})
	}
}

func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 2 {
		t.Errorf("active requests = %v, want 2", got)
	}

	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

func TestBreakerStateValue(t *testing.T) {
	tests := []struct {
		state string
		want  float64
	}{
		{"closed", 0},
		{"half-open", 1},
		{"open", 2},
		{"OPEN", 2},
		{"unknown", 0},
	}
	for _, tt := range tests {
		if got := BreakerStateValue(tt.state); got != tt.want {
			t.Errorf("BreakerStateValue(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	name := "test_breaker_transition"

	RecordBreakerTransition(name, "closed", "open")
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues(name)); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues(name, "closed", "open")); got != 1 {
		t.Errorf("transitions = %v, want 1", got)
	}

	RecordBreakerTransition(name, "open", "half-open")
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues(name)); got != 1 {
		t.Errorf("state = %v, want 1", got)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	const workers = 8
	const perWorker = 100

	counter := EventsPublished.WithLabelValues("test.concurrent")
	before := testutil.ToFloat64(counter)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				counter.Inc()
				PreloadResident.Inc()
				PreloadResident.Dec()
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(counter) - before; got != workers*perWorker {
		t.Errorf("events delta = %v, want %d", got, workers*perWorker)
	}
}

func TestMetricsRegistration(t *testing.T) {
	// Test that all metrics can be collected without panic
	metrics := []prometheus.Collector{
		PreloadResident,
		PreloadQueued,
		PreloadEvictions,
		PreloadOutcomes,
		PlaybackTransitions,
		PlaybackPlaying,
		PlaybackErrors,
		PlaybackStaleStarts,
		EngagementMutations,
		EngagementRollbacks,
		EngagementItems,
		FeedSessions,
		FeedPages,
		FeedItemsRejected,
		ProviderRequestDuration,
		ProviderCacheHits,
		ProviderCacheMisses,
		EventsPublished,
		EventsPublishErrors,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		WSConnections,
		WSMessagesSent,
		WSMessagesReceived,
		WSErrors,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerTransitions,
		ActorsIssued,
		AppInfo,
		AppUptime,
	}

	for _, m := range metrics {
		ch := make(chan *prometheus.Desc, 10)
		m.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("Metric has no descriptors")
		}
	}
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)
	RecordProviderRequest("content", "feed_page", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}

func BenchmarkRecordAPIRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordAPIRequest("GET", "/api/v1/sessions/{id}", "200", 25*time.Millisecond)
	}
}
