// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"time"

	"github.com/spf13/cast"

	"github.com/usedbytes/mission/props"
)

var ErrNoNode = errors.New("no such node")

// Requests still running after this long are dropped on shutdown.
var telemShutdownTimeout = time.Second

// Telem serves read-only views of the store over net/rpc. Values are
// flattened to strings.
type Telem struct {
	tree *props.Tree
}

// GetNode returns the fields directly under path.
func (t *Telem) GetNode(path string, fields *map[string]string) error {
	n := t.tree.Node(path).Fields()
	if len(n) == 0 {
		return fmt.Errorf("%w: %s", ErrNoNode, props.Clean(path))
	}

	ret := make(map[string]string, len(n))
	for k, v := range n {
		ret[k] = cast.ToString(v)
	}
	*fields = ret

	return nil
}

// GetTree returns every field under prefix, keyed by full path.
func (t *Telem) GetTree(prefix string, fields *map[string]string) error {
	snap := t.tree.Snapshot(prefix)

	ret := make(map[string]string, len(snap))
	for k, v := range snap {
		ret[k] = cast.ToString(v)
	}
	*fields = ret

	return nil
}

func (t *Telem) GetCurrent(ignored bool, name *string) error {
	*name = t.tree.Node("/task").GetString("current_task")

	return nil
}

func newTelemServer(tree *props.Tree) (*http.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Telem", &Telem{tree: tree}); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, srv)

	return &http.Server{
		Handler: mux,
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

// serveTelem serves on l until ctx is cancelled.
func serveTelem(ctx context.Context, l net.Listener, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemShutdownTimeout)
		defer cancel()

		sdErr := srv.Shutdown(shutdownCtx)
		if errors.Is(sdErr, context.DeadlineExceeded) {
			// Cut off whatever is still in flight.
			srv.Close()
			sdErr = nil
		}

		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		if sdErr != nil {
			return fmt.Errorf("telemetry shutdown: %w", sdErr)
		}
		return nil
	}
}
