// Package tlskit provides TLS termination for the server runtime:
//
//   - Compiling PEM certificate/key files into a server tls.Config with a
//     fixed ALPN preference of h2 then http/1.1
//   - An Acceptor (a net.Listener) that binds each accepted connection to
//     the configuration current at accept time
//   - A Reloader that refreshes certificate material periodically and on
//     file-change notification, without restarting the listening socket
//
// Handshakes run lazily: an accepted connection performs its TLS handshake
// on first read or write, never inside Accept.
package tlskit
