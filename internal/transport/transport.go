// SPDX-License-Identifier: MIT

// Package transport publishes analysis results to outside consumers.
package transport

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"vampeyer/internal/vis"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// StreamMessage carries one feature of one requested stream.
type StreamMessage struct {
	// Stream is the index of the stream in the renderer's request.
	Stream   int           `json:"stream"`
	Plugin   string        `json:"plugin"`
	Output   string        `json:"output"`
	Time     time.Duration `json:"timestamp_ns"`
	Duration time.Duration `json:"duration_ns,omitempty"`
	Values   []float32     `json:"values"`
	Label    string        `json:"label,omitempty"`
}

// NewStreamMessages flattens results into one message per feature, ordered
// by time. Features at the same time keep stream order.
func NewStreamMessages(refs []vis.OutputRef, results vis.ResultSet) ([]StreamMessage, error) {
	if len(refs) != len(results) {
		return nil, fmt.Errorf("have %d streams for %d outputs", len(results), len(refs))
	}

	var msgs []StreamMessage
	for i, list := range results {
		for _, f := range list {
			m := StreamMessage{
				Stream: i,
				Plugin: refs[i].Config.Key.String(),
				Output: refs[i].Output,
				Time:   f.Timestamp,
				Values: f.Values,
				Label:  f.Label,
			}
			if f.HasDuration {
				m.Duration = f.Duration
			}
			msgs = append(msgs, m)
		}
	}
	slices.SortStableFunc(msgs, func(a, b StreamMessage) int {
		return cmp.Compare(a.Time, b.Time)
	})
	return msgs, nil
}

// Publish sends msgs through t in order and stops at the first failure.
func Publish(t Transport, msgs []StreamMessage) error {
	for i, m := range msgs {
		if err := t.Send(m); err != nil {
			return fmt.Errorf("failed to publish message %d of %d: %w", i+1, len(msgs), err)
		}
	}
	return nil
}
