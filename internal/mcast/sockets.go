package mcast

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// SendSockets holds the two process-wide UDP send sockets spec.md §4.5
// requires: one with the configured TTL (minimum 1) and one with TTL=0
// for local loopback. Both are shared, read-only after creation, and
// concurrent-safe at the OS layer (spec.md §3, "Ownership").
type SendSockets struct {
	TTL  *net.UDPConn // non-zero TTL, minimum 1
	Loop *net.UDPConn // TTL=0, local loopback only
}

// OpenSendSockets opens the pair described above, bound to iface, and
// joins mcastGroup on the TTL socket to work around snooping-switch drop
// behavior (spec.md §4.5). ttl is coerced to a minimum of 1.
func OpenSendSockets(mcastGroup *net.UDPAddr, iface *net.Interface, ttl, tos int) (*SendSockets, error) {
	if ttl < 1 {
		ttl = 1
	}
	ttlConn, err := openSendSocket(iface, ttl, tos)
	if err != nil {
		return nil, fmt.Errorf("mcast: opening TTL=%d send socket: %w", ttl, err)
	}
	if err := JoinGroup(ttlConn, iface, mcastGroup); err != nil {
		// Non-fatal: some kernels/drivers reject joins on send-only sockets.
		// The socket is still usable for sending.
		_ = err
	}

	loopConn, err := openSendSocket(iface, 0, tos)
	if err != nil {
		ttlConn.Close()
		return nil, fmt.Errorf("mcast: opening TTL=0 send socket: %w", err)
	}

	return &SendSockets{TTL: ttlConn, Loop: loopConn}, nil
}

// openSendSocket creates an unconnected, non-blocking UDP socket with
// IP_MULTICAST_TTL and (if iface is non-nil) IP_MULTICAST_IF set. This
// mirrors ka9q-radio's output_mcast() as ported by the teacher's
// setupControlSocket (radiod.go).
func openSendSocket(iface *net.Interface, ttl, tos int) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, err
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, err
	}

	var sockErr error
	err = rawConn.Control(func(fd uintptr) {
		if e := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_MULTICAST_TTL, ttl); e != nil {
			sockErr = fmt.Errorf("IP_MULTICAST_TTL: %w", e)
			return
		}
		if tos != 0 {
			if e := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IP, syscall.IP_TOS, tos); e != nil {
				sockErr = fmt.Errorf("IP_TOS: %w", e)
				return
			}
		}
		if iface != nil {
			mreqn := syscall.IPMreqn{Ifindex: int32(iface.Index)}
			if e := syscall.SetsockoptIPMreqn(int(fd), syscall.IPPROTO_IP, syscall.IP_MULTICAST_IF, &mreqn); e != nil {
				sockErr = fmt.Errorf("IP_MULTICAST_IF: %w", e)
				return
			}
		}
		if e := unix.SetNonblock(int(fd), true); e != nil {
			sockErr = fmt.Errorf("set non-blocking: %w", e)
		}
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if sockErr != nil {
		conn.Close()
		return nil, sockErr
	}
	return conn, nil
}

// JoinGroup joins addr's multicast group on the socket bound to iface
// (nil selects the default interface).
func JoinGroup(conn *net.UDPConn, iface *net.Interface, addr *net.UDPAddr) error {
	p := ipv4.NewPacketConn(conn)
	return p.JoinGroup(iface, &net.UDPAddr{IP: addr.IP})
}

// ListenMulticast opens the dedicated multicast receive socket used for
// the status/control endpoint's command-reception side (spec.md §4.7).
func ListenMulticast(addr *net.UDPAddr, iface *net.Interface) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); e != nil {
					sockErr = e
					return
				}
				if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
					sockErr = e
				}
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	conn, err := lc.ListenPacket(nil, "udp4", fmt.Sprintf(":%d", addr.Port))
	if err != nil {
		return nil, err
	}
	udpConn := conn.(*net.UDPConn)

	p := ipv4.NewPacketConn(udpConn)
	if err := p.JoinGroup(iface, &net.UDPAddr{IP: addr.IP}); err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("mcast: joining %s: %w", addr.IP, err)
	}
	return udpConn, nil
}
