// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/metrics"
	"github.com/tomtom215/reelfeed/internal/playback"
)

// DefaultBufferSize is the per-subscriber output buffer of the bus.
const DefaultBufferSize = 1024

// Bus is the in-process domain event bus. Publishing never blocks on
// subscribers, so observers may publish from engine callbacks.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
	now    func() time.Time
}

// NewBus creates a bus. A bufferSize of zero uses DefaultBufferSize.
func NewBus(bufferSize int64) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	logger := watermill.NewSlogLogger(logging.NewSlogLoggerFor("events"))
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: bufferSize,
		}, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Publisher returns the bus as a watermill publisher.
func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// Subscriber returns the bus as a watermill subscriber.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Logger returns the watermill logger of the bus.
func (b *Bus) Logger() watermill.LoggerAdapter {
	return b.logger
}

// Publish encodes payload as JSON and publishes it on topic.
func (b *Bus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.EventsPublishErrors.WithLabelValues(topic).Inc()
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		metrics.EventsPublishErrors.WithLabelValues(topic).Inc()
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// PublishPlayback publishes one playback transition.
func (b *Bus) PublishPlayback(sessionID string, t playback.Transition) {
	ev := PlaybackEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		SessionID:     sessionID,
		ItemID:        t.ItemID,
		From:          t.From.String(),
		To:            t.To.String(),
		Timestamp:     b.now(),
	}
	if t.Err != nil {
		ev.Error = t.Err.Error()
	}
	if err := b.Publish(TopicPlayback, ev); err != nil {
		logging.Warn().Err(err).Msg("Playback event dropped")
	}
}

// PublishEngagement publishes one engagement change.
func (b *Bus) PublishEngagement(ch engagement.Change) {
	byType := make(map[string]int, len(ch.Counts.ByType))
	for r, n := range ch.Counts.ByType {
		byType[string(r)] = n
	}
	ev := EngagementEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		Key:           ch.Key.String(),
		Actor:         logging.SanitizeActorID(ch.Actor),
		Total:         ch.Counts.Total,
		ByType:        byType,
		RolledBack:    ch.RolledBack,
		Timestamp:     b.now(),
	}
	if err := b.Publish(TopicEngagement, ev); err != nil {
		logging.Warn().Err(err).Msg("Engagement event dropped")
	}
}

// PublishSession publishes a session lifecycle event.
func (b *Bus) PublishSession(sessionID, surface, action string) {
	ev := SessionEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		SessionID:     sessionID,
		Surface:       surface,
		Action:        action,
		Timestamp:     b.now(),
	}
	if err := b.Publish(TopicSession, ev); err != nil {
		logging.Warn().Err(err).Msg("Session event dropped")
	}
}

// Close closes the bus and all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
