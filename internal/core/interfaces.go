package core

// Frame is an encoded wire message, serialized once per broadcast.
type Frame []byte

// Envelope is the one outbound wire shape.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SessionID identifies one client connection for its whole lifetime.
type SessionID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Open() bool
	Close()
}

// PublishResult reports delivery stats/backpressure to the engine.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// ConnectionResolver turns a session id into its live send capability.
// Rooms store ids only; transport lookup stays an explicit query.
type ConnectionResolver interface {
	Connection(sid SessionID) (SignalConnection, bool)
}
