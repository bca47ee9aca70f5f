package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/acme/outline-api/config"
	"github.com/stretchr/testify/assert"
)

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         9090,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 4 * time.Second,
		},
	}
	handler := http.NewServeMux()

	srv := newServer(cfg, handler)

	assert.Equal(t, "127.0.0.1:9090", srv.Addr)
	assert.Equal(t, 3*time.Second, srv.ReadTimeout)
	assert.Equal(t, 3*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 4*time.Second, srv.WriteTimeout)
	assert.Same(t, handler, srv.Handler)
}
