package netkit

import (
	"net"
	"net/netip"
)

// CanonicalAddr rewrites IPv4-mapped IPv6 addresses (::ffff:a.b.c.d) to
// their plain IPv4 form. Dual-stack listeners report IPv4 clients in the
// mapped form, which is noise for logs and policy checks.
func CanonicalAddr(addr net.Addr) net.Addr {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr
	}
	ip, ok := netip.AddrFromSlice(tcp.IP)
	if !ok {
		return addr
	}
	canon := net.TCPAddrFromAddrPort(netip.AddrPortFrom(ip.Unmap(), uint16(tcp.Port)))
	canon.Zone = tcp.Zone
	return canon
}

// ParsePeer parses a host:port string (as found in http.Request.RemoteAddr)
// into a canonical netip.AddrPort. The zero AddrPort is returned for
// unparseable input.
func ParsePeer(remoteAddr string) netip.AddrPort {
	ap, err := netip.ParseAddrPort(remoteAddr)
	if err != nil {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

// canonConn overrides RemoteAddr with its canonical form. All other
// behavior is the embedded connection's.
type canonConn struct {
	net.Conn
}

func (c canonConn) RemoteAddr() net.Addr {
	return CanonicalAddr(c.Conn.RemoteAddr())
}
