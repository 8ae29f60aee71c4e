/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package host

import (
	"crypto/tls"
	"sort"
	"sync"

	"golang.org/x/net/idna"
)

// Hosts type represents all local domains set.
type Hosts struct {
	mu          sync.RWMutex
	defaultHost string
	hosts       map[string]tls.Certificate
}

// New creates a Hosts instance initialized with a set of host configurations.
func New(configurations []Config) *Hosts {
	hs := &Hosts{
		hosts: make(map[string]tls.Certificate),
	}
	for i, cfg := range configurations {
		if i == 0 {
			hs.RegisterDefaultHost(cfg.Name, cfg.Certificate)
		} else {
			hs.RegisterHost(cfg.Name, cfg.Certificate)
		}
	}
	return hs
}

// RegisterDefaultHost registers default host value along with its certificate.
func (hs *Hosts) RegisterDefaultHost(h string, cer tls.Certificate) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	name := normalizeDomain(h)
	hs.defaultHost = name
	hs.hosts[name] = cer
}

// RegisterHost registers a host value along with its certificate.
func (hs *Hosts) RegisterHost(h string, cer tls.Certificate) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.hosts[normalizeDomain(h)] = cer
}

// DefaultHostName returns default host name value.
func (hs *Hosts) DefaultHostName() string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.defaultHost
}

// IsLocalHost tells whether or not h value corresponds to a served host.
func (hs *Hosts) IsLocalHost(h string) bool {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	_, ok := hs.hosts[normalizeDomain(h)]
	return ok
}

// HostNames returns the list of all registered local hosts.
func (hs *Hosts) HostNames() []string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	var ret []string
	for n := range hs.hosts {
		ret = append(ret, n)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Certificates returns all registered domain certificates.
func (hs *Hosts) Certificates() []tls.Certificate {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	var certs []tls.Certificate
	for _, cer := range hs.hosts {
		certs = append(certs, cer)
	}
	return certs
}

// normalizeDomain applies RFC 7622 §3.2 domainpart mapping so that
// internationalized host names compare consistently.
func normalizeDomain(domain string) string {
	d, err := idna.ToUnicode(domain)
	if err != nil {
		return domain
	}
	return d
}
