package domain

import "errors"

// Request-scoped failures of the signaling core. Every one of these is
// surfaced to the originating client in its acknowledgement payload and
// never takes the gateway down.
var (
	ErrRoomNotFound              = errors.New("room not found")
	ErrTransportNotFound         = errors.New("transport not found")
	ErrTransportCreate           = errors.New("failed to create transport")
	ErrTransportClosed           = errors.New("transport is closed")
	ErrInvalidProducerTransport  = errors.New("invalid producer transport")
	ErrConsumerTransportNotFound = errors.New("consumer transport not found")
	ErrIncompatibleCapabilities  = errors.New("cannot consume with given rtp capabilities")
	ErrProducerNotFound          = errors.New("producer not found")

	// ErrSocketGone means a transport finished creation after its owning
	// socket had already disconnected. The transport is closed instead of
	// being registered, so the registry never references an orphan.
	ErrSocketGone = errors.New("owning socket disconnected")

	ErrStreamNotFound = errors.New("stream not found")
)
