/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package c2s

import (
	"context"
	"fmt"

	"github.com/vireo-im/vireo/host"
	"github.com/vireo-im/vireo/storage/repository"
)

const (
	streamNamespace = "http://etherx.jabber.org/streams"
	tlsNamespace    = "urn:ietf:params:xml:ns:xmpp-tls"
	saslNamespace   = "urn:ietf:params:xml:ns:xmpp-sasl"
)

// C2S represents the set of stream listeners.
type C2S struct {
	servers map[string]*server
}

// New initializes the c2s subsystem spawning a connection listener
// for every configuration.
func New(configs []Config, hosts *host.Hosts, userRep repository.User) (*C2S, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("c2s: at least one listener configuration is required")
	}
	c := &C2S{servers: make(map[string]*server)}
	for i := 0; i < len(configs); i++ {
		cfg := configs[i]
		if _, ok := c.servers[cfg.ID]; ok {
			return nil, fmt.Errorf("c2s: duplicated listener identifier: %s", cfg.ID)
		}
		c.servers[cfg.ID] = newServer(&cfg, hosts, userRep)
	}
	return c, nil
}

// Start spawns every server listener.
func (c *C2S) Start() {
	for _, srv := range c.servers {
		go srv.start()
	}
}

// Shutdown gracefully shuts down every server listener, closing
// remaining active streams.
func (c *C2S) Shutdown(ctx context.Context) error {
	for _, srv := range c.servers {
		if err := srv.shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
