// SPDX-License-Identifier: MIT

// Package udp streams feature frames as compact binary UDP packets.
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "vampeyer/internal/log"
	"vampeyer/internal/transport"
)

// DefaultInterval paces packets at roughly 60 per second.
const DefaultInterval = 16 * time.Millisecond

// headerSize is the packet size without values.
const headerSize = 4 + 2 + 8 + 2

var ErrStopped = errors.New("UDP publisher is not running")

type packetSender interface {
	Send(data []byte) error
}

// UDPPublisher sends one packet per feature frame, at most one per interval.
// Send hands a message to the publishing goroutine and blocks until it has
// been picked up, so a caller publishing a whole result set is paced to the
// interval.
type UDPPublisher struct {
	sender   packetSender
	interval time.Duration

	ticker   *time.Ticker
	pending  chan transport.StreamMessage
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher writing through sender. An interval
// of zero or less means DefaultInterval.
func NewUDPPublisher(interval time.Duration, sender packetSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s)", interval)

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		pending:      make(chan transport.StreamMessage),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a
// no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-doneChan:
				return
			case <-ticker.C:
			}
			select {
			case msg := <-p.pending:
				p.buildAndSendPacket(msg)
			case <-doneChan:
				return
			default:
			}
		}
	}()
}

// Stop signals the publishing goroutine to exit and waits for it.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished after %d packets.", p.sequenceNum)
	return nil
}

// Send queues a transport.StreamMessage for the next tick.
func (p *UDPPublisher) Send(data any) error {
	msg, ok := data.(transport.StreamMessage)
	if !ok {
		return fmt.Errorf("UDPPublisher: cannot send %T", data)
	}

	p.mu.Lock()
	doneChan := p.doneChan
	running := p.ticker != nil
	p.mu.Unlock()
	if !running {
		return ErrStopped
	}

	select {
	case p.pending <- msg:
		return nil
	case <-doneChan:
		return ErrStopped
	}
}

/*
Packet layout, big endian:

	| Field           | Type      | Bytes | Description                   |
	|-----------------|-----------|-------|-------------------------------|
	| Sequence number | uint32    | 4     | Increases by one per packet   |
	| Stream index    | uint16    | 2     | Position in the request       |
	| Timestamp       | int64     | 8     | Nanoseconds from stream start |
	| Value count     | uint16    | 2     | Number of floats (N)          |
	| Values          | []float32 | N * 4 | Feature values                |
*/

// Packet is one decoded feature frame.
type Packet struct {
	Sequence  uint32
	Stream    uint16
	Timestamp time.Duration
	Values    []float32
}

func (p *UDPPublisher) buildAndSendPacket(msg transport.StreamMessage) {
	values := msg.Values
	if len(values) > maxValues {
		applog.Warnf("UDPPublisher: Truncating %d values to %d", len(values), maxValues)
		values = values[:maxValues]
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(msg.Stream))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, int64(msg.Time))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(values)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, values)
	}
	if err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// DecodePacket parses a packet built by UDPPublisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(b))
	}
	n := int(binary.BigEndian.Uint16(b[14:16]))
	if len(b) != headerSize+4*n {
		return Packet{}, fmt.Errorf("packet has %d bytes, want %d for %d values", len(b), headerSize+4*n, n)
	}
	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Stream:    binary.BigEndian.Uint16(b[4:6]),
		Timestamp: time.Duration(binary.BigEndian.Uint64(b[6:14])),
		Values:    make([]float32, n),
	}
	for i := range pkt.Values {
		off := headerSize + 4*i
		pkt.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return pkt, nil
}

// Close stops the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ transport.Transport = (*UDPPublisher)(nil)
