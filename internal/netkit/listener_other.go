//go:build !linux

package netkit

import (
	"fmt"
	"net"
)

// ListenDualStack binds a TCP socket accepting both IPv4 and IPv6 clients.
//
// On non-Linux platforms the net package's default wildcard listener is
// used; it is dual-stack wherever the OS supports mapped addresses, and the
// kernel chooses the backlog.
func ListenDualStack(port uint16) (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("netkit: listen :%d: %w", port, err)
	}
	return &dualStackListener{Listener: ln}, nil
}
