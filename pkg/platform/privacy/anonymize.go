// Package privacy keeps raw client addresses out of logs, metrics and audit events.
package privacy

import (
	"fmt"
	"net/netip"
)

// AnonymizeIP truncates an address to its network prefix so log lines cannot
// single out one caller: IPv4 keeps the /24 ("192.168.1.47" -> "192.168.1.0"),
// IPv6 keeps the /48 ("2001:db8:85a3::8a2e:370:7334" -> "2001:0db8:85a3::").
//
// Edge headers sometimes carry "host:port"; the port is dropped before masking.
// Returns "unknown" for empty input or the unknown marker and "invalid" for
// anything that does not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		addrPort, perr := netip.ParseAddrPort(ip)
		if perr != nil {
			return "invalid"
		}
		addr = addrPort.Addr()
	}
	addr = addr.Unmap()

	if addr.Is4() {
		b := addr.As4()
		return fmt.Sprintf("%d.%d.%d.0", b[0], b[1], b[2])
	}

	b := addr.As16()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::", b[0], b[1], b[2], b[3], b[4], b[5])
}
