/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package c2s

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultConnectTimeout = time.Duration(5) * time.Second
	defaultTimeout        = time.Duration(300) * time.Second
	defaultMaxStanzaSize  = 32768

	defaultClientPort = 5222
	defaultServerPort = 5269
)

// ListenerType represents a stream listener content type.
type ListenerType int

const (
	// ClientListener accepts streams qualified by the client namespace.
	ClientListener ListenerType = iota

	// ServerListener accepts streams qualified by the server namespace.
	ServerListener
)

// String returns ListenerType string representation.
func (lt ListenerType) String() string {
	switch lt {
	case ClientListener:
		return "client"
	case ServerListener:
		return "server"
	}
	return ""
}

// Config represents a stream listener configuration.
type Config struct {
	ID             string
	Type           ListenerType
	BindAddress    string
	Port           int
	ConnectTimeout time.Duration
	Timeout        time.Duration
	MaxStanzaSize  int
	SASL           []string
}

type configProxy struct {
	ID             string   `yaml:"id"`
	Type           string   `yaml:"type"`
	BindAddress    string   `yaml:"bind_addr"`
	Port           int      `yaml:"port"`
	ConnectTimeout int      `yaml:"connect_timeout"`
	Timeout        int      `yaml:"timeout"`
	MaxStanzaSize  int      `yaml:"max_stanza_size"`
	SASL           []string `yaml:"sasl"`
}

// UnmarshalYAML satisfies Unmarshaler interface.
func (cfg *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	p := configProxy{}
	if err := unmarshal(&p); err != nil {
		return err
	}
	// validate listener type
	lt := strings.ToLower(p.Type)
	switch lt {
	case "", "client":
		cfg.Type = ClientListener
	case "server":
		cfg.Type = ServerListener
	default:
		return fmt.Errorf("c2s.Config: unrecognized listener type: %s", p.Type)
	}
	// validate SASL mechanisms
	for _, sasl := range p.SASL {
		switch sasl {
		case "plain", "scram_sha_1":
			continue
		default:
			return fmt.Errorf("c2s.Config: unrecognized SASL mechanism: %s", sasl)
		}
	}
	cfg.ID = p.ID
	if len(cfg.ID) == 0 {
		cfg.ID = lt
		if len(cfg.ID) == 0 {
			cfg.ID = "client"
		}
	}
	cfg.BindAddress = p.BindAddress
	cfg.Port = p.Port
	if cfg.Port == 0 {
		switch cfg.Type {
		case ServerListener:
			cfg.Port = defaultServerPort
		default:
			cfg.Port = defaultClientPort
		}
	}
	cfg.ConnectTimeout = time.Duration(p.ConnectTimeout) * time.Second
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	cfg.Timeout = time.Duration(p.Timeout) * time.Second
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.MaxStanzaSize = p.MaxStanzaSize
	if cfg.MaxStanzaSize == 0 {
		cfg.MaxStanzaSize = defaultMaxStanzaSize
	}
	cfg.SASL = p.SASL
	return nil
}
