// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package live publishes beacon records to websocket clients.
//
// /ws streams every record as a JSON object. /latest returns the last one.
package live

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/GermanBionicSystems/bevobeacon/beacon"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

// Message is the JSON form of a record. NaN values are null.
type Message struct {
	Beacon    string              `json:"beacon"`
	Timestamp string              `json:"timestamp"`
	Values    map[string]*float64 `json:"values"`
}

// NewMessage converts rec.
func NewMessage(beaconID string, rec beacon.Record) Message {
	m := Message{Beacon: beaconID, Timestamp: rec.Timestamp(), Values: make(map[string]*float64, len(rec.Values))}
	for k, v := range rec.Values {
		if math.IsNaN(v) {
			m.Values[k] = nil
			continue
		}
		m.Values[k] = &v
	}
	return m
}

// Server is a beacon.Sink and an http.Handler.
type Server struct {
	Beacon string
	Log    logrus.FieldLogger

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	latest  []byte
}

// New returns a Server for beaconID.
func New(beaconID string, log logrus.FieldLogger) *Server {
	s := &Server{
		Beacon: beaconID,
		Log:    log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:     http.NewServeMux(),
		clients: map[*websocket.Conn]struct{}{},
	}
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/latest", s.handleLatest)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Write broadcasts rec to every client. Clients that fail are dropped.
func (s *Server) Write(_ context.Context, rec beacon.Record) error {
	b, err := json.Marshal(NewMessage(s.Beacon, rec))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = b
	for c := range s.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.Log.WithError(err).Info("websocket client dropped")
			_ = c.Close()
			delete(s.clients, c)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	s.Log.WithField("addr", addr).Info("live server listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithError(err).Warn("websocket upgrade")
		return
	}
	s.mu.Lock()
	s.clients[ws] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b := s.latest
	s.mu.Unlock()
	if b == nil {
		http.Error(w, "no record yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
