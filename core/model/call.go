package model

// ServiceCall is one named action request with its raw payload. It exists only
// for the duration of a single dispatch.
type ServiceCall struct {
	// ID correlates the call across transports, audit records and results.
	// The dispatcher assigns one when left empty.
	ID   string
	Name string
	Data map[string]any
}

// RoutingPair addresses a function group of a physical device on a specific
// gateway interface.
type RoutingPair struct {
	InterfaceID string
	// ChannelAddress is "<device_address>:<channel>".
	ChannelAddress string
}
