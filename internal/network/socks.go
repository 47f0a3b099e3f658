// Package network provides the SOCKS5 dialers the metric senders connect
// through.
package network

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/proxy"

	"devicemonitor/internal/config"
)

// Enabled reports whether cfg names a usable proxy.
func Enabled(cfg config.SOCKSConfig) bool {
	return cfg.Host != "" && cfg.Port > 0
}

// NewSOCKS5Dialer creates a SOCKS5 proxy dialer.
func NewSOCKS5Dialer(cfg config.SOCKSConfig) (proxy.Dialer, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", addr, err)
	}
	return dialer, nil
}

// ContextDialFunc returns a context-aware dial function through the proxy in
// cfg, or nil when no proxy is configured.
func ContextDialFunc(cfg config.SOCKSConfig) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	if !Enabled(cfg) {
		return nil, nil
	}
	dialer, err := NewSOCKS5Dialer(cfg)
	if err != nil {
		return nil, err
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
