package server

import (
	"context"
	"testing"
	"time"

	"RelVal/pkg/config"
	xhttp "RelVal/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppRunStopsOnContext(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.ShutdownTimeout = time.Second

	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	app := New(cfg, nil, srv, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
