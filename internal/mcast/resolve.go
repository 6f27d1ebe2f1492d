package mcast

import "net"

// dnsLookupAttempts bounds the number of resolution tries before falling
// back to hash-based synthesis (spec.md §4.5: "attempt up to two
// resolutions").
const dnsLookupAttempts = 2

// Resolution is the outcome of resolving a DNS-style group name to a
// multicast socket address.
type Resolution struct {
	Addr    *net.UDPAddr
	UsedDNS bool // true if addr came from an actual DNS answer
}

// Resolve implements spec.md §4.5 steps 1–3: try DNS (if enabled) up to
// twice, otherwise synthesize a deterministic address in 239.0.0.0/8.
// name is suffixed with ".local" first unless it already ends in ".local".
func Resolve(name string, port int, useDNS bool) Resolution {
	full := EnsureSuffix(name, ".local")

	if useDNS {
		for i := 0; i < dnsLookupAttempts; i++ {
			ips, err := net.LookupIP(full)
			if err == nil && len(ips) > 0 {
				for _, ip := range ips {
					if v4 := ip.To4(); v4 != nil {
						return Resolution{
							Addr:    &net.UDPAddr{IP: v4, Port: port},
							UsedDNS: true,
						}
					}
				}
			}
		}
	}

	return Resolution{
		Addr:    &net.UDPAddr{IP: MakeMaddr(full), Port: port},
		UsedDNS: false,
	}
}
