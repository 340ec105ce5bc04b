package serve

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/botfront/authoring-service/internal/config"
	"github.com/charmbracelet/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunningServer is a started HTTP listener.
type RunningServer struct {
	Addr  net.Addr
	Port  int
	HTTP  *http.Server
	TLS   bool
	Close func(ctx context.Context) error
}

// StartHTTP listens on cfg.Port and serves handler. Plaintext connections
// accept HTTP/1.1 and h2c; with a certificate configured the listener speaks
// TLS with HTTP/2 negotiated through ALPN.
func StartHTTP(_ context.Context, cfg config.ListenerConfig, handler http.Handler) (*RunningServer, error) {
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen failed: %w", err)
	}

	server := &http.Server{
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	if cfg.TLSEnabled() {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			_ = lis.Close()
			return nil, fmt.Errorf("failed to load tls certificate: %w", err)
		}
		server.Handler = handler
		lis = tls.NewListener(lis, &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"h2", "http/1.1"},
			MinVersion:   tls.VersionTLS12,
		})
		if err := http2.ConfigureServer(server, &http2.Server{}); err != nil {
			_ = lis.Close()
			return nil, fmt.Errorf("configure http2: %w", err)
		}
	}

	go func() {
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
		}
	}()

	port := 0
	if tcpAddr, ok := lis.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	var closeOnce sync.Once
	closeFn := func(ctx context.Context) error {
		var shutdownErr error
		closeOnce.Do(func() {
			if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
				shutdownErr = err
			}
		})
		return shutdownErr
	}

	return &RunningServer{
		Addr:  lis.Addr(),
		Port:  port,
		HTTP:  server,
		TLS:   cfg.TLSEnabled(),
		Close: closeFn,
	}, nil
}
