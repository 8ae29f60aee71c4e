/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package c2s

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/vireo-im/vireo/host"
	"github.com/vireo-im/vireo/log"
	"github.com/vireo-im/vireo/storage/repository"
	"github.com/vireo-im/vireo/stream"
	"github.com/vireo-im/vireo/streamerror"
	"github.com/vireo-im/vireo/transport"
)

var listenerProvider = net.Listen

type server struct {
	cfg        *Config
	hosts      *host.Hosts
	userRep    repository.User
	ln         net.Listener
	stmCounter uint64
	listening  uint32

	mu      sync.RWMutex
	streams map[string]stream.C2S
}

func newServer(cfg *Config, hosts *host.Hosts, userRep repository.User) *server {
	return &server{
		cfg:     cfg,
		hosts:   hosts,
		userRep: userRep,
		streams: make(map[string]stream.C2S),
	}
}

func (s *server) start() {
	address := s.cfg.BindAddress + ":" + strconv.Itoa(s.cfg.Port)

	log.Infof("%s: listening at %s [type: %v]", s.cfg.ID, address, s.cfg.Type)

	if err := s.listenConn(address); err != nil {
		log.Fatalf("%v", err)
	}
}

func (s *server) listenConn(address string) error {
	ln, err := listenerProvider("tcp", address)
	if err != nil {
		return err
	}
	s.ln = ln

	atomic.StoreUint32(&s.listening, 1)
	for atomic.LoadUint32(&s.listening) == 1 {
		conn, err := ln.Accept()
		if err == nil {
			go s.startStream(transport.NewSocketTransport(conn))
			continue
		}
	}
	return nil
}

func (s *server) shutdown(ctx context.Context) error {
	if atomic.CompareAndSwapUint32(&s.listening, 1, 0) {
		// stop listening...
		if err := s.ln.Close(); err != nil {
			return err
		}
		// close all connections...
		s.mu.RLock()
		streams := make([]stream.C2S, 0, len(s.streams))
		for _, stm := range s.streams {
			streams = append(streams, stm)
		}
		s.mu.RUnlock()

		for _, stm := range streams {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				stm.Disconnect(ctx, streamerror.ErrSystemShutdown)
			}
		}
	}
	return nil
}

func (s *server) startStream(tr transport.Transport) {
	cfg := &streamConfig{
		transport:      tr,
		connectTimeout: s.cfg.ConnectTimeout,
		timeout:        s.cfg.Timeout,
		maxStanzaSize:  s.cfg.MaxStanzaSize,
		sasl:           s.cfg.SASL,
		isServer:       s.cfg.Type == ServerListener,
		onDisconnect:   s.unregisterStream,
	}
	stm := newStream(s.nextID(), cfg, s.hosts, s.userRep)
	s.registerStream(stm)
}

func (s *server) registerStream(stm stream.C2S) {
	s.mu.Lock()
	s.streams[stm.ID()] = stm
	s.mu.Unlock()

	log.Infof("registered stream... (id: %s)", stm.ID())
}

func (s *server) unregisterStream(stm stream.C2S) {
	s.mu.Lock()
	delete(s.streams, stm.ID())
	s.mu.Unlock()

	log.Infof("unregistered stream... (id: %s)", stm.ID())
}

func (s *server) nextID() string {
	return fmt.Sprintf("%s:%d", s.cfg.ID, atomic.AddUint64(&s.stmCounter, 1))
}
