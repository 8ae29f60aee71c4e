/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package transport

import (
	"bufio"
	"crypto/tls"
	"io"
	"net"
	"time"
)

const socketBuffSize = 4096

type socketTransport struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
}

// NewSocketTransport creates a socket class stream transport.
func NewSocketTransport(conn net.Conn) Transport {
	s := &socketTransport{
		conn: conn,
		br:   bufio.NewReaderSize(conn, socketBuffSize),
		bw:   bufio.NewWriterSize(conn, socketBuffSize),
	}
	return s
}

func (s *socketTransport) Type() Type {
	return Socket
}

func (s *socketTransport) Read(p []byte) (n int, err error) {
	return s.br.Read(p)
}

func (s *socketTransport) Write(p []byte) (n int, err error) {
	defer func() { _ = s.bw.Flush() }()
	return s.bw.Write(p)
}

func (s *socketTransport) WriteString(str string) error {
	defer func() { _ = s.bw.Flush() }()
	_, err := io.WriteString(s.bw, str)
	return err
}

func (s *socketTransport) Close() error {
	return s.conn.Close()
}

func (s *socketTransport) PeerAddress() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *socketTransport) SetReadDeadline(d time.Time) error {
	return s.conn.SetReadDeadline(d)
}

func (s *socketTransport) SetWriteDeadline(d time.Time) error {
	return s.conn.SetWriteDeadline(d)
}

func (s *socketTransport) StartTLS(cfg *tls.Config) {
	if _, ok := s.conn.(*tls.Conn); !ok {
		s.conn = tls.Server(s.conn, cfg)
		s.bw.Reset(s.conn)
		s.br.Reset(s.conn)
	}
}

func (s *socketTransport) ChannelBindingBytes(mechanism ChannelBindingMechanism) []byte {
	if tlsConn, ok := s.conn.(*tls.Conn); ok {
		switch mechanism {
		case TLSUnique:
			st := tlsConn.ConnectionState()
			if !st.HandshakeComplete {
				return nil
			}
			return st.TLSUnique
		default:
			break
		}
	}
	return nil
}
