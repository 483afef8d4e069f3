package config

import (
	"net"
	"strconv"
)

// netJoin builds a host:port listener address, handling bracketed IPv6 hosts.
func netJoin(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
