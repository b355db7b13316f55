// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	applog "vampeyer/internal/log"
)

// maxDatagram is the largest UDP payload over IPv4.
const maxDatagram = 65507

// maxValues is how many feature values fit in one packet.
const maxValues = (maxDatagram - headerSize) / 4

var (
	ErrSenderClosed = errors.New("UDP sender is closed")
	ErrOversize     = errors.New("packet exceeds the UDP payload limit")
)

// Sender writes feature packets to one connected UDP peer and counts what
// it has written.
type Sender struct {
	conn *net.UDPConn

	mu      sync.Mutex
	closed  bool
	packets uint64
	bytes   uint64
}

// Dial resolves target ("host:port") and connects a Sender to it. Nothing is
// sent until the first packet.
func Dial(target string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve feature target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("connect feature target %q: %w", target, err)
	}
	applog.Infof("UDP: sending features from %s to %s", conn.LocalAddr(), conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Target returns the peer packets are written to.
func (s *Sender) Target() net.Addr { return s.conn.RemoteAddr() }

// Stats returns the number of packets and bytes written so far.
func (s *Sender) Stats() (packets, bytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packets, s.bytes
}

// Send writes packet as a single datagram.
func (s *Sender) Send(packet []byte) error {
	if len(packet) > maxDatagram {
		return fmt.Errorf("%w: %d bytes", ErrOversize, len(packet))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}
	n, err := s.conn.Write(packet)
	if err != nil {
		applog.Warnf("UDP: write to %s failed: %v", s.conn.RemoteAddr(), err)
		return fmt.Errorf("write feature packet: %w", err)
	}
	s.packets++
	s.bytes += uint64(n)
	return nil
}

// Close releases the socket. Later calls return nil.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	applog.Debugf("UDP: closing %s after %d packets (%d bytes)", s.conn.RemoteAddr(), s.packets, s.bytes)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close feature socket: %w", err)
	}
	return nil
}
