package handlers

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/4cecoder/circlesync/models"
	"github.com/4cecoder/circlesync/protocol"
	"github.com/gorilla/websocket"
)

type participant struct {
	ws  *websocket.Conn
	udp *net.UDPConn
}

func startServer(t *testing.T) (*Hub, *Relay, string) {
	t.Helper()
	hub := NewHub()
	relay, err := ListenRelay("127.0.0.1:0", hub)
	if err != nil {
		t.Fatalf("listen relay: %v", err)
	}
	hub.SetRelayAddr(relay.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", HandleWebSocket(hub))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		cancel()
		_ = relay.Close()
		<-done
	})
	return hub, relay, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func readEvent(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	e, err := protocol.Decode(message)
	if err != nil {
		t.Fatalf("decode %s: %v", message, err)
	}
	return e
}

func writeEvent(t *testing.T, conn *websocket.Conn, e protocol.Event) {
	t.Helper()
	b, err := protocol.Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func connect(t *testing.T, url string, relay *Relay) (*participant, protocol.Event) {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	udp, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { _ = udp.Close() })

	req := readEvent(t, ws)
	if req.Event != protocol.EventEndpointRequest {
		t.Fatalf("first event = %+v, want endpoint_request", req)
	}
	target, err := req.Endpoint()
	if err != nil || target != relay.Addr() {
		t.Fatalf("endpoint_request target %v (%v), relay at %v", target, err, relay.Addr())
	}
	writeEvent(t, ws, protocol.EndpointResponse(udp.LocalAddr().(*net.UDPAddr).AddrPort()))
	snapshot := readEvent(t, ws)
	if snapshot.Event != protocol.EventRosterSnapshot {
		t.Fatalf("got %+v, want roster_snapshot", snapshot)
	}
	return &participant{ws: ws, udp: udp}, snapshot
}

func exchange(t *testing.T, p *participant, relay *Relay, pos models.Position) []models.Position {
	t.Helper()
	if _, err := p.udp.WriteToUDPAddrPort(protocol.Pack([]models.Position{pos}), relay.Addr()); err != nil {
		t.Fatalf("send datagram: %v", err)
	}
	buf := make([]byte, protocol.MaxDatagramSize)
	_ = p.udp.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := p.udp.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	positions, err := protocol.Unpack(buf[:n])
	if err != nil {
		t.Fatalf("unpack reply: %v", err)
	}
	return positions
}

func TestWebSocketSessionLifecycle(t *testing.T) {
	hub, relay, url := startServer(t)

	a, snapA := connect(t, url, relay)
	if snapA.Count != 0 {
		t.Fatalf("first snapshot count = %d", snapA.Count)
	}
	b, snapB := connect(t, url, relay)
	if snapB.Count != 1 || len(snapB.IDs) != 1 {
		t.Fatalf("second snapshot = %+v", snapB)
	}
	joined := readEvent(t, a.ws)
	if joined.Event != protocol.EventPeerJoined || joined.ID == "" {
		t.Fatalf("A got %+v, want peer_joined", joined)
	}
	bID := joined.ID

	if got := exchange(t, b, relay, models.Position{X: 3, Y: 4}); !reflect.DeepEqual(got, []models.Position{{}}) {
		t.Fatalf("B reply = %+v, want A at origin", got)
	}
	if got := exchange(t, a, relay, models.Position{X: 1, Y: 2}); !reflect.DeepEqual(got, []models.Position{{X: 3, Y: 4}}) {
		t.Fatalf("A reply = %+v", got)
	}

	if err := b.ws.Close(); err != nil {
		t.Fatalf("close B: %v", err)
	}
	left := readEvent(t, a.ws)
	if left.Event != protocol.EventPeerLeft || left.ID != bID || left.Index != 0 {
		t.Fatalf("A got %+v, want peer_left for %s at 0", left, bID)
	}
	if hub.Registered() != 1 {
		t.Fatalf("registered = %d", hub.Registered())
	}
}

func TestWebSocketRejectsBinaryFrames(t *testing.T) {
	_, relay, url := startServer(t)
	a, _ := connect(t, url, relay)

	if err := a.ws.WriteMessage(websocket.BinaryMessage, []byte{0, 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if e := readEvent(t, a.ws); e.Event != protocol.EventError {
		t.Fatalf("got %+v, want error", e)
	}
	// Still usable afterwards.
	writeEvent(t, a.ws, protocol.Event{Event: protocol.EventPeerJoined})
	if e := readEvent(t, a.ws); e.Event != protocol.EventError || e.Message != "Invalid event type" {
		t.Fatalf("got %+v", e)
	}
}

func TestRelayDropsUnregisteredSenders(t *testing.T) {
	_, relay, _ := startServer(t)
	udp, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer udp.Close()

	if _, err := udp.WriteToUDPAddrPort(protocol.Pack([]models.Position{{X: 1, Y: 1}}), relay.Addr()); err != nil {
		t.Fatalf("send: %v", err)
	}
	_ = udp.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := udp.Read(make([]byte, 64)); err == nil {
		t.Fatalf("relay answered an unregistered sender")
	}
}
