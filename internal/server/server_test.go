package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, zap.NewNop(), "127.0.0.1:0", http.NotFoundHandler(), func(ctx context.Context) error {
			<-ctx.Done()
			close(workerDone)
			return nil
		})
	}()

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	<-workerDone
}

func TestRun_WorkerFailureStopsServer(t *testing.T) {
	boom := errors.New("consumer lost")
	err := Run(context.Background(), zap.NewNop(), "127.0.0.1:0", http.NotFoundHandler(), func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
