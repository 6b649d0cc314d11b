package signaling

// relayRoute maps a peer-addressed inbound event to the outbound event
// delivered to the resolved target.
type relayRoute struct {
	outbound    string
	rateLimited bool
}

// relayRoutes lists the six directed event kinds. Only request-connection
// is gated by the per-origin rate limiter; call lifecycle events flow
// freely once a conversation is underway.
var relayRoutes = map[string]relayRoute{
	"request-connection": {outbound: "incoming-request", rateLimited: true},
	"accept-connection":  {outbound: "connection-accepted"},
	"call-request":       {outbound: "incoming-call"},
	"call-accepted":      {outbound: "call-accepted"},
	"call-rejected":      {outbound: "call-rejected"},
	"call-ended":         {outbound: "call-ended"},
}
