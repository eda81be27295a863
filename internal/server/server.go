// Package server implements the listen/accept loop, bounded worker
// pool, and graceful shutdown (spec.md §4.9). Grounded on the teacher's
// cmd/node and cmd/coordinator main()s: an *http.Server bound to a
// listen address, stopped on SIGINT/SIGTERM via a buffered signal
// channel and a context.WithTimeout-bounded Shutdown. Here the listener
// is a raw net.Listener (not HTTP) and each accepted connection is
// handed to its own internal/conn.Conn, but the signal-driven shutdown
// shape is the same.
package server

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/xfrase/internal/conn"
	"github.com/dreamware/xfrase/internal/handler"
	"github.com/dreamware/xfrase/internal/xerrors"
	"github.com/dreamware/xfrase/internal/xlog"
)

// Server owns the listening socket and the set of in-flight connections.
type Server struct {
	handler     *handler.Handler
	stepTimeout time.Duration
	threads     int

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	sem      chan struct{} // bounds concurrently-served connections to threads
}

// New builds a Server. threads bounds the number of connections served
// concurrently (spec.md §4.9 "worker pool of n_threads workers").
func New(h *handler.Handler, threads int, stepTimeout time.Duration) *Server {
	if threads <= 0 {
		threads = 1
	}
	return &Server{
		handler:     h,
		stepTimeout: stepTimeout,
		threads:     threads,
		sem:         make(chan struct{}, threads),
	}
}

// ListenAndServe binds hostname:port and serves until Shutdown is
// called or Accept returns a permanent error. Binding to "localhost"
// yields a loopback-only, non-routable listener; spec.md §9 treats this
// as a warning rather than an error, so a non-routable bind logs a
// warning and proceeds.
func (s *Server) ListenAndServe(hostname string, port int) error {
	if strings.EqualFold(hostname, "localhost") {
		xlog.Warn("binding to localhost yields a non-routable address; remote clients will not be able to connect",
			xlog.Fields{"hostname": hostname})
	}

	addr := fmt.Sprintf("%s:%d", hostname, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return xerrors.New("server.ListenAndServe", xerrors.IOError, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	xlog.Info("listening", xlog.Fields{"addr": addr, "threads": s.threads})

	for {
		nc, err := ln.Accept()
		if err != nil {
			if isClosed(err) {
				xlog.Info("listener closed, draining in-flight connections", nil)
				s.wg.Wait()
				return nil
			}
			xlog.Warn("accept failed", xlog.Fields{"error": err.Error()})
			continue
		}

		s.sem <- struct{}{}
		s.wg.Add(1)
		go func() {
			defer func() { <-s.sem; s.wg.Done() }()
			conn.New(nc, s.handler, s.stepTimeout).Serve()
		}()
	}
}

// Shutdown stops accepting new connections; in-flight connections drain
// on their own per-connection deadlines (spec.md §4.9: "stops accepting
// and drains in-flight connections, bounded by per-connection
// deadlines").
func (s *Server) Shutdown() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func isClosed(err error) bool {
	return err != nil && strings.Contains(err.Error(), "use of closed network connection")
}
