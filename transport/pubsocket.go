package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
)

// PubSocket is a topic-less publish socket: it binds a TCP listener
// once, accepts any number of subscriber connections, and broadcasts
// every Publish payload as a newline-delimited JSON line to each
// connected subscriber. A subscriber that falls behind is disconnected
// rather than allowed to block the publisher. It is a register/
// unregister/broadcast hub run over a raw net.Listener.
type PubSocket struct {
	mu      sync.RWMutex
	ln      net.Listener
	clients map[net.Conn]chan []byte

	register   chan net.Conn
	unregister chan net.Conn
	done       chan struct{}
}

// Bind opens a TCP listener at addr and starts accepting subscriber
// connections in the background. addr accepts the ZeroMQ-style
// "tcp://*:PORT" form used throughout spec §6 as well as a bare Go
// net.Listen address.
func Bind(addr string) (*PubSocket, error) {
	ln, err := net.Listen("tcp", toListenAddr(addr))
	if err != nil {
		return nil, fmt.Errorf("transport: bind %s: %w", addr, err)
	}

	p := &PubSocket{
		ln:         ln,
		clients:    make(map[net.Conn]chan []byte),
		register:   make(chan net.Conn),
		unregister: make(chan net.Conn),
		done:       make(chan struct{}),
	}

	go p.acceptLoop()
	go p.run()

	return p, nil
}

func toListenAddr(addr string) string {
	const wildcard = "tcp://*"
	if strings.HasPrefix(addr, wildcard) {
		return addr[len(wildcard):]
	}
	return addr
}

func (p *PubSocket) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		select {
		case p.register <- conn:
		case <-p.done:
			conn.Close()
			return
		}
	}
}

func (p *PubSocket) run() {
	for {
		select {
		case conn := <-p.register:
			ch := make(chan []byte, 16)
			p.mu.Lock()
			p.clients[conn] = ch
			p.mu.Unlock()
			go p.forward(conn, ch)

		case conn := <-p.unregister:
			p.mu.Lock()
			if ch, ok := p.clients[conn]; ok {
				delete(p.clients, conn)
				close(ch)
			}
			p.mu.Unlock()
			conn.Close()

		case <-p.done:
			return
		}
	}
}

func (p *PubSocket) forward(conn net.Conn, ch chan []byte) {
	w := bufio.NewWriter(conn)
	for payload := range ch {
		if _, err := w.Write(payload); err != nil {
			p.disconnect(conn)
			return
		}
		if err := w.WriteByte('\n'); err != nil {
			p.disconnect(conn)
			return
		}
		if err := w.Flush(); err != nil {
			p.disconnect(conn)
			return
		}
	}
}

func (p *PubSocket) disconnect(conn net.Conn) {
	select {
	case p.unregister <- conn:
	case <-p.done:
	}
}

// Publish marshals rec as JSON and broadcasts it to every connected
// subscriber. A subscriber whose send buffer is full is dropped instead
// of blocking the publisher; a TransportSend failure here is logged by
// the caller and does not stop the scheduler loop.
func (p *PubSocket) Publish(rec *Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("transport: marshal record: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for conn, ch := range p.clients {
		select {
		case ch <- payload:
		default:
			go p.disconnect(conn)
		}
	}
	return nil
}

// Close stops accepting new subscribers and releases the bound listener.
func (p *PubSocket) Close() error {
	close(p.done)
	return p.ln.Close()
}
