package pipeline

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// HostChecker decides whether a notification URI points at a file on this
// host. Files announced by other nodes are not ours to convert.
type HostChecker struct {
	serverName string
	lookup     func(host string) ([]string, error)
	localAddrs func() ([]net.Addr, error)
}

// NewHostChecker returns a checker that treats serverName, "localhost", and
// any name resolving to a local interface address as this host.
func NewHostChecker(serverName string) *HostChecker {
	return &HostChecker{
		serverName: strings.ToLower(serverName),
		lookup:     net.LookupHost,
		localAddrs: net.InterfaceAddrs,
	}
}

// IsLocal reports whether the host part of uri is this host. A URI without a
// host (a bare path or file:///...) is local.
func (h *HostChecker) IsLocal(uri string) (bool, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return false, fmt.Errorf("parse uri %q: %w", uri, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" || host == h.serverName {
		return true, nil
	}

	addrs, err := h.resolve(host)
	if err != nil {
		return false, err
	}
	local, err := h.interfaceIPs()
	if err != nil {
		return false, err
	}

	for _, a := range addrs {
		if a.IsLoopback() {
			return true, nil
		}
		for _, l := range local {
			if a.Equal(l) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (h *HostChecker) resolve(host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	names, err := h.lookup(host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	ips := make([]net.IP, 0, len(names))
	for _, n := range names {
		if ip := net.ParseIP(n); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips, nil
}

func (h *HostChecker) interfaceIPs() ([]net.IP, error) {
	addrs, err := h.localAddrs()
	if err != nil {
		return nil, fmt.Errorf("list interface addresses: %w", err)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		switch v := a.(type) {
		case *net.IPNet:
			ips = append(ips, v.IP)
		case *net.IPAddr:
			ips = append(ips, v.IP)
		}
	}
	return ips, nil
}

// SourcePath extracts the local filesystem path from a notification URI.
func SourcePath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return uri
	}
	return u.Path
}
