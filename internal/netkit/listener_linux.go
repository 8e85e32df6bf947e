//go:build linux

package netkit

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenBacklog is the accept queue depth requested from the kernel.
const listenBacklog = 1024

// ListenDualStack binds one socket on the unspecified IPv6 address that
// accepts both IPv6 clients and IPv4 clients (via mapped addresses).
//
// The socket is created by hand because the net package exposes neither the
// IPV6_V6ONLY knob nor the listen backlog:
//
//   - SO_REUSEADDR for fast restarts
//   - IPV6_V6ONLY=0 for the dual-stack behavior
//   - backlog 1024
//   - non-blocking, so it integrates with the runtime poller
//
// Bind or listen failure is returned to the caller; there is no retry at
// this layer.
func ListenDualStack(port uint16) (net.Listener, error) {
	fd, err := unix.Socket(unix.AF_INET6, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("netkit: create socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netkit: set SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netkit: clear IPV6_V6ONLY: %w", err)
	}

	sa := &unix.SockaddrInet6{Port: int(port)} // [::]:port
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netkit: bind [::]:%d: %w", port, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netkit: listen: %w", err)
	}

	// net.FileListener dup()s the descriptor; the os.File wrapper must be
	// closed to avoid leaking the original.
	f := os.NewFile(uintptr(fd), "dualstack-listener")
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("netkit: adopt socket: %w", err)
	}

	return &dualStackListener{Listener: ln}, nil
}
