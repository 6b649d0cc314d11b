package signaling

import (
	"encoding/json"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	env, err := parseEnvelope([]byte(`{"event":"register","data":"alice"}`))
	if err != nil {
		t.Fatalf("parseEnvelope: %v", err)
	}
	if env.Event != "register" || string(env.Data) != `"alice"` {
		t.Fatalf("env = %+v", env)
	}
}

func TestParseEnvelope_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":       `hello`,
		"missing event":  `{"data":{}}`,
		"unknown field":  `{"event":"x","data":{},"nope":1}`,
		"trailing data":  `{"event":"x"}{"event":"y"}`,
		"array envelope": `[1,2]`,
	}
	for name, raw := range cases {
		if _, err := parseEnvelope([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseDirected(t *testing.T) {
	p, err := parseDirected(json.RawMessage(`{"to":"alice","from":"bob","callType":"video"}`))
	if err != nil {
		t.Fatalf("parseDirected: %v", err)
	}
	if p.to != "alice" || p.from != "bob" {
		t.Fatalf("to/from = %q/%q", p.to, p.from)
	}
	if string(p.extra["callType"]) != `"video"` {
		t.Fatalf("extra = %v", p.extra)
	}
}

func TestParseDirected_NormalizesAddresses(t *testing.T) {
	p, err := parseDirected(json.RawMessage(`{"to":" a l i c e ","from":"b o b"}`))
	if err != nil {
		t.Fatalf("parseDirected: %v", err)
	}
	if p.to != "alice" || p.from != "bob" {
		t.Fatalf("to/from = %q/%q, want alice/bob", p.to, p.from)
	}
}

func TestParseDirected_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":           ``,
		"not object":      `"hi"`,
		"missing to":      `{"from":"bob"}`,
		"missing from":    `{"to":"alice"}`,
		"whitespace to":   `{"to":"  ","from":"bob"}`,
		"non-string from": `{"to":"alice","from":7}`,
	}
	for name, raw := range cases {
		if _, err := parseDirected(json.RawMessage(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDirectedOutbound_PreservesExtraAndDropsTo(t *testing.T) {
	p, err := parseDirected(json.RawMessage(`{"to":"alice","from":"bob","callType":"video","hint":{"x":1}}`))
	if err != nil {
		t.Fatalf("parseDirected: %v", err)
	}

	raw, err := p.outbound()
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal outbound: %v", err)
	}
	if _, ok := out["to"]; ok {
		t.Fatalf("outbound payload still carries to: %s", raw)
	}
	if string(out["from"]) != `"bob"` {
		t.Fatalf("from = %s", out["from"])
	}
	if string(out["callType"]) != `"video"` {
		t.Fatalf("callType = %s", out["callType"])
	}
	if string(out["hint"]) != `{"x":1}` {
		t.Fatalf("hint = %s", out["hint"])
	}
}

func TestParseRoomPayload(t *testing.T) {
	p, err := parseRoomPayload(json.RawMessage(`{"room":"r","payload":{"sdp":"v=0"}}`))
	if err != nil {
		t.Fatalf("parseRoomPayload: %v", err)
	}
	if p.Room != "r" || string(p.Payload) != `{"sdp":"v=0"}` {
		t.Fatalf("p = %+v", p)
	}

	if _, err := parseRoomPayload(json.RawMessage(`{"payload":1}`)); err == nil {
		t.Fatalf("expected error for missing room")
	}
	if _, err := parseRoomPayload(nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestRelayRoutes_Table(t *testing.T) {
	want := map[string]relayRoute{
		"request-connection": {outbound: "incoming-request", rateLimited: true},
		"accept-connection":  {outbound: "connection-accepted"},
		"call-request":       {outbound: "incoming-call"},
		"call-accepted":      {outbound: "call-accepted"},
		"call-rejected":      {outbound: "call-rejected"},
		"call-ended":         {outbound: "call-ended"},
	}
	if len(relayRoutes) != len(want) {
		t.Fatalf("relayRoutes has %d entries, want %d", len(relayRoutes), len(want))
	}
	for inbound, route := range want {
		if got := relayRoutes[inbound]; got != route {
			t.Errorf("relayRoutes[%q] = %+v, want %+v", inbound, got, route)
		}
	}
}
