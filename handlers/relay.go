package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/netip"
	"time"

	"github.com/4cecoder/circlesync/protocol"
)

// relayPoll bounds how long a read waits before rechecking for shutdown.
const relayPoll = 100 * time.Millisecond

// Relay is the datagram side of the server: it feeds position datagrams into the
// hub and answers each with the positions of everyone else.
type Relay struct {
	hub  *Hub
	conn *net.UDPConn
}

func ListenRelay(addr string, hub *Hub) (*Relay, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve relay addr %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen relay: %w", err)
	}
	return &Relay{hub: hub, conn: conn}, nil
}

func (r *Relay) Addr() netip.AddrPort {
	addr := r.conn.LocalAddr().(*net.UDPAddr).AddrPort()
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}

// Run serves datagrams until ctx is done or the socket is closed.
func (r *Relay) Run(ctx context.Context) error {
	log.Printf("[UDP] UDP server running on %s", r.Addr())
	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = r.conn.SetReadDeadline(time.Now().Add(relayPoll))
		n, from, err := r.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("[UDP] read error: %v", err)
			continue
		}

		reply, ok := r.hub.Relay(from, buf[:n])
		if !ok {
			continue
		}
		if _, err := r.conn.WriteToUDPAddrPort(reply, from); err != nil {
			log.Printf("[UDP] Error replying to %s: %v", from, err)
		}
	}
}

func (r *Relay) Close() error {
	return r.conn.Close()
}
