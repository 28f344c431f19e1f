package domain

import (
	"context"

	"github.com/pion/webrtc/v4"
)

type MediaKind string

const (
	MediaKindAudio = MediaKind("audio")
	MediaKindVideo = MediaKind("video")
)

type TransportRole string

const (
	TransportRoleProducer = TransportRole("producer")
	TransportRoleConsumer = TransportRole("consumer")
)

// RTPParameters describe one media stream as produced by a client.
// They are forwarded to the media router, which interprets them; the
// signaling core only carries them through.
type RTPParameters struct {
	MimeType    string
	PayloadType uint8
	ClockRate   uint32
	Channels    uint16
	SSRC        uint32
}

type RTPCodecCapability struct {
	MimeType  string
	ClockRate uint32
	Channels  uint16
}

// RTPCapabilities is the set of codecs a consuming client can receive.
type RTPCapabilities struct {
	Codecs []RTPCodecCapability
}

// TransportInfo carries the negotiation parameters a client needs to
// build its side of a transport. All fields are engine-assigned and
// passed through to the client verbatim.
type TransportInfo struct {
	ID             string
	ICEParameters  webrtc.ICEParameters
	ICECandidates  []webrtc.ICECandidate
	DTLSParameters webrtc.DTLSParameters
}

// ConnectParameters is the client's half of the transport handshake.
// The ICE fields are required by the engine to start connectivity
// checks before DTLS can come up.
type ConnectParameters struct {
	DTLS       webrtc.DTLSParameters
	ICE        *webrtc.ICEParameters
	Candidates []webrtc.ICECandidate
}

// MediaRouter is the boundary to the media-routing engine. The core
// orchestrates transports, producers and consumers through it but never
// touches SRTP/ICE/DTLS internals itself.
type MediaRouter interface {
	CreateTransport(ctx context.Context) (RouterTransport, error)
	CanConsume(producerID string, caps RTPCapabilities) bool
	Close()
}

// RouterTransport is one media connection leg owned by a single client
// socket. All operations are fallible and fail with ErrTransportClosed
// once the transport reached its terminal state.
type RouterTransport interface {
	ID() string
	Info() TransportInfo
	Connect(ctx context.Context, params ConnectParameters) error
	Produce(ctx context.Context, kind MediaKind, rtp RTPParameters) (Producer, error)
	Consume(ctx context.Context, producerID string, caps RTPCapabilities, paused bool) (Consumer, error)
	// OnDTLSStateChange registers an observer for the transport's DTLS
	// lifecycle; the closed state is what drives automatic reaping.
	OnDTLSStateChange(f func(state webrtc.DTLSTransportState))
	Close() error
}

type Producer interface {
	ID() string
	Kind() MediaKind
	Close() error
}

type Consumer interface {
	ID() string
	ProducerID() string
	Kind() MediaKind
	RTPParameters() RTPParameters
	Paused() bool
	Resume() error
	Close() error
}
