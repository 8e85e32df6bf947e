// Package netkit provides the transport-level building blocks for the
// server runtime:
//
//   - Dual-stack (IPv4/IPv6) TCP listeners
//   - Idle-timeout connection decoration
//   - Accept-error retry with exponential backoff
//   - Peer address canonicalization
//
// Everything here operates on net.Listener/net.Conn so the pieces compose
// freely with TLS termination and net/http.
package netkit
