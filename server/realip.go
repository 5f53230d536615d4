package server

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

var errInvalidIP = errors.New("invalid ip address")

var privateBlocks = mustParseCIDRs(
	"127.0.0.1/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"100.64.0.0/10", // carrier grade NAT
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(blocks ...string) []*net.IPNet {
	nets := make([]*net.IPNet, len(blocks))
	for i, block := range blocks {
		_, ipNet, err := net.ParseCIDR(block)
		if err != nil {
			panic(err)
		}
		nets[i] = ipNet
	}
	return nets
}

// IsPrivateIP checks if address is under a private, loopback or link local CIDR block
func IsPrivateIP(address string) (bool, error) {
	ip := net.ParseIP(address)
	if ip == nil {
		return false, errInvalidIP
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true, nil
		}
	}
	return false, nil
}

// RealIP client IP of the access log, the first public X-Forwarded-For address,
// else X-Real-Ip, else the remote address
func RealIP(r *http.Request) string {
	xRealIP := r.Header.Get("X-Real-Ip")
	xForwardedFor := r.Header.Get("X-Forwarded-For")
	if xRealIP == "" && xForwardedFor == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	for _, address := range strings.Split(xForwardedFor, ",") {
		address = strings.TrimSpace(address)
		if isPrivate, err := IsPrivateIP(address); !isPrivate && err == nil {
			return address
		}
	}
	return xRealIP
}
