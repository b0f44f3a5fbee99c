package protocol

import (
	"errors"
	"net/netip"
	"strings"
	"testing"
)

func TestEncodeDecodePeerLeft(t *testing.T) {
	b, err := Encode(PeerLeft("abc", 2))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Event != EventPeerLeft || e.ID != "abc" || e.Index != 2 {
		t.Fatalf("decoded %+v", e)
	}
}

func TestEmptySnapshotCarriesZeroCount(t *testing.T) {
	b, err := Encode(RosterSnapshot(nil))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != `{"event":"roster_snapshot","count":0,"ids":[]}` {
		t.Fatalf("encoded %s", b)
	}
	e, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Count != 0 || len(e.IDs) != 0 {
		t.Fatalf("decoded %+v", e)
	}
}

func TestEncodeKeepsZeroValuedFields(t *testing.T) {
	cases := []struct {
		event Event
		want  string
	}{
		{PeerLeft("b", 0), `{"event":"peer_left","id":"b","index":0}`},
		{PeerLeft("", 0), `{"event":"peer_left","id":"","index":0}`},
		{RosterSnapshot([]string{"a"}), `{"event":"roster_snapshot","count":1,"ids":["a"]}`},
		{RosterSync(nil), `{"event":"roster_sync","ids":[]}`},
		{EndpointRequest(netip.MustParseAddrPort("127.0.0.1:9999")), `{"event":"endpoint_request","ip":"127.0.0.1","port":9999}`},
		{PeerJoined("b"), `{"event":"peer_joined","id":"b"}`},
		{Error("bad"), `{"event":"error","message":"bad"}`},
	}
	for _, c := range cases {
		b, err := Encode(c.event)
		if err != nil {
			t.Fatalf("encode %+v: %v", c.event, err)
		}
		if string(b) != c.want {
			t.Fatalf("encoded %s, want %s", b, c.want)
		}
	}
}

func TestDecodeAcceptsLegacyFields(t *testing.T) {
	e, err := Decode([]byte(`{"event":"endpoint_response","ip":"127.0.0.1","port":40000}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	addr, err := e.Endpoint()
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	if addr != netip.MustParseAddrPort("127.0.0.1:40000") {
		t.Fatalf("endpoint = %v", addr)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatalf("expected error for empty message")
	}
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid json")
	}
	if _, err := Decode([]byte(`{"ip":"1.2.3.4"}`)); !errors.Is(err, ErrNoEvent) {
		t.Fatalf("err = %v, want ErrNoEvent", err)
	}
	if _, err := Encode(Event{}); !errors.Is(err, ErrNoEvent) {
		t.Fatalf("encode err = %v, want ErrNoEvent", err)
	}
}

func TestEndpointValidation(t *testing.T) {
	cases := []Event{
		{Event: EventEndpointResponse, IP: "nope", Port: 1},
		{Event: EventEndpointResponse, IP: "127.0.0.1", Port: 0},
		{Event: EventEndpointResponse, IP: "127.0.0.1", Port: 70000},
	}
	for _, e := range cases {
		if _, err := e.Endpoint(); err == nil {
			t.Fatalf("expected error for %+v", e)
		}
	}
	e := EndpointRequest(netip.MustParseAddrPort("[::ffff:10.0.0.1]:9999"))
	addr, err := e.Endpoint()
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	if !strings.HasPrefix(addr.String(), "10.0.0.1") {
		t.Fatalf("mapped address not unmapped: %v", addr)
	}
}
