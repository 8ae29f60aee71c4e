/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package pgsql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // SQL driver
	"github.com/vireo-im/vireo/log"
	"github.com/vireo-im/vireo/storage/repository"
)

// pingInterval defines how often to check the connection.
var pingInterval = 15 * time.Second

// pingTimeout defines how long to wait for pong from server.
var pingTimeout = 10 * time.Second

// Config represents PostgreSQL storage configuration.
type Config struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	PoolSize int    `yaml:"pool_size"`
}

type pgSQLContainer struct {
	user *pgSQLUser

	h          *sql.DB
	cancelPing context.CancelFunc
	doneCh     chan chan bool
}

// New initializes PostgreSQL storage and returns associated container.
func New(cfg *Config) (repository.Container, error) {
	c := &pgSQLContainer{doneCh: make(chan chan bool, 1)}

	var err error

	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s", cfg.User, cfg.Password, cfg.Host, cfg.Database, cfg.SSLMode)

	c.h, err = sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	c.h.SetMaxOpenConns(cfg.PoolSize) // set max opened connection count

	if err := c.ping(context.Background()); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelPing = cancel
	go c.loop(ctx)

	c.user = newUser(c.h)
	return c, nil
}

func (c *pgSQLContainer) User() repository.User { return c.user }

func (c *pgSQLContainer) Close(ctx context.Context) error {
	ch := make(chan bool)
	c.doneCh <- ch
	select {
	case <-ch:
		c.cancelPing()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pgSQLContainer) loop(ctx context.Context) {
	tc := time.NewTicker(pingInterval)
	defer tc.Stop()

	for {
		select {
		case <-tc.C:
			if err := c.ping(ctx); err != nil {
				log.Error(err)
			}
		case ch := <-c.doneCh:
			if err := c.h.Close(); err != nil {
				log.Error(err)
			}
			close(ch)
			return
		case <-ctx.Done():
			return
		}
	}
}

// ping sends a ping request to the server and outputs any error to log.
func (c *pgSQLContainer) ping(ctx context.Context) error {
	pingCtx, cancel := context.WithDeadline(ctx, time.Now().Add(pingTimeout))
	defer cancel()

	return c.h.PingContext(pingCtx)
}
