package utils

import (
	"net"
	"strings"
)

// GetLocalIPs returns all non-loopback IPv4 addresses. Link-local
// (169.254.x.x) addresses are dropped when a routable one exists.
func GetLocalIPs() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	return filterIPs(addrs)
}

func filterIPs(addrs []net.Addr) []string {
	var all []string
	hasRoutable := false
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
			continue
		}
		ip := ipnet.IP.String()
		all = append(all, ip)
		if !strings.HasPrefix(ip, "169.254") {
			hasRoutable = true
		}
	}

	var out []string
	for _, ip := range all {
		if hasRoutable && strings.HasPrefix(ip, "169.254") {
			continue
		}
		out = append(out, ip)
	}
	return out
}

// FormURL is the address a phone on the same network opens to reach the
// form. Falls back to localhost when no interface qualifies.
func FormURL(port string) string {
	return formURL(GetLocalIPs(), port)
}

func formURL(ips []string, port string) string {
	host := "localhost"
	if len(ips) > 0 {
		host = ips[0]
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}
