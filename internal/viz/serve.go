package viz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

// NewServer returns an echo instance serving the rendered page at "/".
func NewServer(page []byte) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.GET("/", func(c echo.Context) error {
		return c.HTMLBlob(http.StatusOK, page)
	})
	return e
}

// Serve shows the page on addr until ctx is cancelled. ready, when non-nil,
// receives the bound address once the listener is up.
func Serve(ctx context.Context, addr string, page []byte, logger *slog.Logger, ready chan<- string) error {
	e := NewServer(page)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	e.Listener = ln

	errc := make(chan error, 1)
	go func() {
		errc <- e.Start("")
	}()
	if logger != nil {
		logger.Info("serving topics", "addr", ln.Addr().String())
	}
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}
