package service

import "context"

// Peer is the socket a message arrived on.
type Peer interface {
	SendMessage(message interface{}) error
}

// Broadcaster delivers messages to every bot subscriber.
type Broadcaster interface {
	BroadcastToBots(message interface{}) error
}

// RelayService handles messages arriving on the relay sockets.
type RelayService interface {
	HandlePanelMessage(ctx context.Context, clientID string, peer Peer, raw []byte)
	HandleBotMessage(ctx context.Context, clientID string, peer Peer, raw []byte)
	// Start begins relaying event bus triggers to the bots.
	Start(ctx context.Context) error
	// Done is closed once the event bus relay has stopped.
	Done() <-chan struct{}
}
