package util

import (
	"net"
	"strconv"
)

// NetJoin formats host and port as host:port, bracketing IPv6 literals.
func NetJoin(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
