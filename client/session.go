// Package client is the participant side of circlesync: it keeps a signaling
// connection to the server, streams the local position over UDP and turns the
// relay's replies into roster updates for the render loop.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/4cecoder/circlesync/config"
	"github.com/4cecoder/circlesync/models"
	"github.com/4cecoder/circlesync/protocol"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	updateBufferSize = 256
	receivePoll      = 100 * time.Millisecond
)

type Session struct {
	cfg     config.Config
	dialer  *websocket.Dialer
	udp     *net.UDPConn
	updates chan Update

	mu     sync.Mutex
	local  models.Position
	target netip.AddrPort // zero until the server sends endpoint_request
}

// NewSession binds the local datagram socket. Nothing is dialed until Run.
func NewSession(cfg config.Config) (*Session, error) {
	laddr, err := net.ResolveUDPAddr("udp", cfg.LocalUDPAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve local udp addr %q: %w", cfg.LocalUDPAddr, err)
	}
	udp, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	log.Printf("[UDP] listening on %s", udp.LocalAddr())
	return &Session{
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		udp:     udp,
		updates: make(chan Update, updateBufferSize),
	}, nil
}

func (s *Session) LocalAddr() netip.AddrPort {
	addr := s.udp.LocalAddr().(*net.UDPAddr).AddrPort()
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}

func (s *Session) Updates() <-chan Update {
	return s.updates
}

// SetLocal records the local circle's position for the next datagram.
func (s *Session) SetLocal(x, y float64) {
	p := models.Position{X: truncate(x), Y: truncate(y)}
	s.mu.Lock()
	s.local = p
	s.mu.Unlock()
}

func truncate(v float64) uint32 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func (s *Session) Target() (netip.AddrPort, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.target.IsValid()
}

func (s *Session) setTarget(addr netip.AddrPort) {
	s.mu.Lock()
	s.target = addr
	s.mu.Unlock()
}

// Run drives signaling, sending and receiving until ctx is cancelled, then
// closes the datagram socket.
func (s *Session) Run(ctx context.Context) error {
	defer s.udp.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.signalLoop(ctx) })
	g.Go(func() error { return s.sendLoop(ctx) })
	g.Go(func() error { return s.receiveLoop(ctx) })
	return g.Wait()
}

// signalLoop keeps a signaling connection up, waiting ReconnectDelay between
// attempts.
func (s *Session) signalLoop(ctx context.Context) error {
	for {
		err := s.signal(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("[WS] error: %v", err)
		s.setTarget(netip.AddrPort{})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

func (s *Session) signal(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.ServerURL, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := s.publish(ctx, RosterReset{}); err != nil {
		return err
	}
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		event, err := protocol.Decode(message)
		if err != nil {
			log.Printf("[WS] ignoring message: %v", err)
			continue
		}
		if err := s.handle(ctx, conn, event); err != nil {
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, conn *websocket.Conn, event protocol.Event) error {
	switch event.Event {
	case protocol.EventEndpointRequest:
		target, err := event.Endpoint()
		if err != nil {
			log.Printf("[WS] bad endpoint_request: %v", err)
			return nil
		}
		s.setTarget(target)
		reply, err := protocol.Encode(protocol.EndpointResponse(s.LocalAddr()))
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return fmt.Errorf("write endpoint_response: %w", err)
		}
		return nil
	case protocol.EventRosterSnapshot:
		return s.publish(ctx, RosterSnapshot{Count: event.Count, IDs: event.IDs})
	case protocol.EventPeerJoined:
		return s.publish(ctx, PeerJoined{ID: event.ID})
	case protocol.EventPeerLeft:
		return s.publish(ctx, PeerLeft{ID: event.ID, Index: event.Index})
	case protocol.EventRosterSync:
		return s.publish(ctx, RosterSync{IDs: event.IDs})
	case protocol.EventError:
		log.Printf("[WS] server error: %s", event.Message)
	default:
		log.Printf("[WS] unknown event %q", event.Event)
	}
	return nil
}

// publish delivers a roster change. These must not be dropped, so it waits for
// room in the buffer.
func (s *Session) publish(ctx context.Context, u Update) error {
	select {
	case s.updates <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) sendLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		target, ok := s.Target()
		if !ok {
			continue
		}
		s.mu.Lock()
		datagram := protocol.Pack([]models.Position{s.local})
		s.mu.Unlock()
		if _, err := s.udp.WriteToUDPAddrPort(datagram, target); err != nil {
			log.Printf("[UDP send] error: %v", err)
		}
	}
}

func (s *Session) receiveLoop(ctx context.Context) error {
	buf := make([]byte, protocol.MaxDatagramSize)
	for ctx.Err() == nil {
		_ = s.udp.SetReadDeadline(time.Now().Add(receivePoll))
		n, from, err := s.udp.ReadFromUDPAddrPort(buf)
		if err != nil {
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
			case errors.Is(err, net.ErrClosed):
				return nil
			default:
				log.Printf("[UDP recv] error: %v", err)
			}
			continue
		}
		target, ok := s.Target()
		if !ok || netip.AddrPortFrom(from.Addr().Unmap(), from.Port()) != target {
			continue
		}
		if n == 0 {
			continue
		}
		positions, err := protocol.Unpack(buf[:n])
		if err != nil {
			continue
		}
		// Positions go stale quickly; drop them rather than stall the receiver.
		select {
		case s.updates <- Positions(positions):
		default:
		}
	}
	return nil
}
