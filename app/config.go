/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package app

import (
	"bytes"
	"io/ioutil"

	"github.com/vireo-im/vireo/c2s"
	"github.com/vireo-im/vireo/host"
	"github.com/vireo-im/vireo/log"
	"github.com/vireo-im/vireo/storage"
	"gopkg.in/yaml.v2"
)

// debugConfig represents debug server configuration.
type debugConfig struct {
	Port int `yaml:"port"`
}

// Config represents a global configuration.
type Config struct {
	PIDFile string         `yaml:"pid_path"`
	Debug   debugConfig    `yaml:"debug"`
	Logger  log.Config     `yaml:"logger"`
	Storage storage.Config `yaml:"storage"`
	Hosts   []host.Config  `yaml:"hosts"`
	C2S     []c2s.Config   `yaml:"listeners"`
}

// FromFile loads default global configuration from
// a specified file.
func (cfg *Config) FromFile(configFile string) error {
	b, err := ioutil.ReadFile(configFile)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, cfg)
}

// FromBuffer loads default global configuration from
// a specified byte buffer.
func (cfg *Config) FromBuffer(buf *bytes.Buffer) error {
	return yaml.Unmarshal(buf.Bytes(), cfg)
}
