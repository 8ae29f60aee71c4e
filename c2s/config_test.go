/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package c2s

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestListenerConfig(t *testing.T) {
	s := Config{}
	err := yaml.Unmarshal([]byte("{id: default, type: client}"), &s)
	require.Nil(t, err)
	require.Equal(t, ClientListener, s.Type)
	require.Equal(t, defaultClientPort, s.Port)
	require.Equal(t, defaultConnectTimeout, s.ConnectTimeout)
	require.Equal(t, defaultTimeout, s.Timeout)
	require.Equal(t, defaultMaxStanzaSize, s.MaxStanzaSize)

	err = yaml.Unmarshal([]byte("{type: server}"), &s)
	require.Nil(t, err)
	require.Equal(t, ServerListener, s.Type)
	require.Equal(t, "server", s.ID) // identifier defaults to listener type
	require.Equal(t, defaultServerPort, s.Port)

	// unrecognized listener type...
	err = yaml.Unmarshal([]byte("{id: default, type: p2p}"), &s)
	require.NotNil(t, err)

	// explicit values...
	cfg := `
id: default
type: client
bind_addr: 127.0.0.1
port: 15222
connect_timeout: 10
timeout: 600
max_stanza_size: 65536
`
	err = yaml.Unmarshal([]byte(cfg), &s)
	require.Nil(t, err)
	require.Equal(t, "127.0.0.1", s.BindAddress)
	require.Equal(t, 15222, s.Port)
	require.Equal(t, time.Duration(10)*time.Second, s.ConnectTimeout)
	require.Equal(t, time.Duration(600)*time.Second, s.Timeout)
	require.Equal(t, 65536, s.MaxStanzaSize)

	// auth mechanisms...
	authCfg := `
id: default
type: client
sasl: [plain, scram_sha_1]
`
	err = yaml.Unmarshal([]byte(authCfg), &s)
	require.Nil(t, err)
	require.Equal(t, 2, len(s.SASL))

	// invalid auth mechanism...
	err = yaml.Unmarshal([]byte("{id: default, type: client, sasl: [invalid]}"), &s)
	require.NotNil(t, err)

	require.Equal(t, "client", ClientListener.String())
	require.Equal(t, "server", ServerListener.String())
	require.Equal(t, "", ListenerType(99).String())
}
