// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "vampeyer/internal/log"
)

// WebSocketTransport serves published messages as JSON over WebSocket at
// /ws. Every message sent so far is replayed to clients that connect later,
// so a viewer attached after the analysis finished still sees all of it.
type WebSocketTransport struct {
	upgrader websocket.Upgrader
	listener net.Listener
	server   *http.Server

	mu      sync.Mutex // guards clients, history and closed
	clients map[*websocket.Conn]bool
	history []any
	closed  bool
}

// NewWebSocketTransport starts a WebSocket server listening on addr.
func NewWebSocketTransport(addr string) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for WebSocket clients on %s: %w", addr, err)
	}

	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		listener: ln,
		clients:  make(map[*websocket.Conn]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{Handler: mux}

	go func() {
		applog.Infof("WebSocketTransport: Serving on ws://%s/ws", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	return wst, nil
}

// Addr returns the address the server is listening on.
func (wst *WebSocketTransport) Addr() net.Addr { return wst.listener.Addr() }

// handleWebSocket upgrades the connection, replays history and registers
// the client for later messages.
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.mu.Lock()
	if wst.closed {
		wst.mu.Unlock()
		conn.Close()
		return
	}
	for _, msg := range wst.history {
		if err := conn.WriteJSON(msg); err != nil {
			wst.mu.Unlock()
			applog.Warnf("WebSocketTransport: Error replaying to client: %v", err)
			conn.Close()
			return
		}
	}
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.mu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Clients only listen; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.mu.Lock()
		delete(wst.clients, conn)
		total := len(wst.clients)
		wst.mu.Unlock()
		conn.Close()
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}()
}

// Send records data and writes it to every connected client.
func (wst *WebSocketTransport) Send(data any) error {
	wst.mu.Lock()
	defer wst.mu.Unlock()
	if wst.closed {
		return errors.New("WebSocket transport is closed")
	}

	wst.history = append(wst.history, data)
	for client := range wst.clients {
		if err := client.WriteJSON(data); err != nil {
			applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
			client.Close()
			delete(wst.clients, client)
		}
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	wst.mu.Lock()
	if wst.closed {
		wst.mu.Unlock()
		return nil
	}
	wst.closed = true
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.mu.Unlock()

	applog.Infof("WebSocketTransport: Closing server")
	return wst.server.Close()
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
