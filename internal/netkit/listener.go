package netkit

import "net"

// dualStackListener canonicalizes the peer address of every accepted
// connection, so IPv4 clients show up as plain IPv4 rather than
// ::ffff:-mapped IPv6.
type dualStackListener struct {
	net.Listener
}

func (l *dualStackListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return canonConn{Conn: c}, nil
}
