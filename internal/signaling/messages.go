package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aryandanave7-glitch/server5/internal/presence"
)

// envelope is the wire format in both directions: a named event plus its
// JSON payload. The payload stays a json.RawMessage end to end; the relay
// never interprets the contents it forwards.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func parseEnvelope(data []byte) (envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return envelope{}, err
	}
	if env.Event == "" {
		return envelope{}, fmt.Errorf("missing event name")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return envelope{}, fmt.Errorf("unexpected trailing data")
	}
	return env, nil
}

// directedPayload is the decoded shape shared by the peer-addressed events:
// {to, from, ...extra}. Extra fields such as callType are carried through
// to the outbound event unchanged.
type directedPayload struct {
	to    string
	from  string
	extra map[string]json.RawMessage
}

func parseDirected(raw json.RawMessage) (directedPayload, error) {
	if len(raw) == 0 {
		return directedPayload{}, fmt.Errorf("missing payload")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return directedPayload{}, err
	}

	var p directedPayload
	if err := stringField(fields, "to", &p.to); err != nil {
		return directedPayload{}, err
	}
	if err := stringField(fields, "from", &p.from); err != nil {
		return directedPayload{}, err
	}

	p.to = presence.NormalizeID(p.to)
	p.from = presence.NormalizeID(p.from)
	if p.to == "" {
		return directedPayload{}, fmt.Errorf("empty to")
	}
	if p.from == "" {
		return directedPayload{}, fmt.Errorf("empty from")
	}

	delete(fields, "to")
	delete(fields, "from")
	p.extra = fields
	return p, nil
}

// outbound builds the forwarded payload {from, ...extra}; the target does
// not see the "to" field it was addressed by.
func (p directedPayload) outbound() (json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(p.extra)+1)
	for k, v := range p.extra {
		out[k] = v
	}
	fromJSON, err := json.Marshal(p.from)
	if err != nil {
		return nil, err
	}
	out["from"] = fromJSON
	return json.Marshal(out)
}

func stringField(fields map[string]json.RawMessage, name string, dst *string) error {
	raw, ok := fields[name]
	if !ok {
		return fmt.Errorf("missing %s", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	return nil
}

// roomPayload is the shape shared by the opaque room relay events `signal`
// and `auth`.
type roomPayload struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

func parseRoomPayload(raw json.RawMessage) (roomPayload, error) {
	if len(raw) == 0 {
		return roomPayload{}, fmt.Errorf("missing payload")
	}

	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return roomPayload{}, err
	}
	if p.Room == "" {
		return roomPayload{}, fmt.Errorf("empty room")
	}
	return p, nil
}
