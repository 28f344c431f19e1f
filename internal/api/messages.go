package api

import "github.com/pion/webrtc/v4"

type ClientEvent string
type ServerEvent string

const (
	ClientEventJoinRoom         = ClientEvent("joinRoom")
	ClientEventCreateTransport  = ClientEvent("createTransport")
	ClientEventConnectTransport = ClientEvent("connectTransport")
	ClientEventProduce          = ClientEvent("produce")
	ClientEventConsume          = ClientEvent("consume")
	ClientEventResume           = ClientEvent("resume")
)

// Acknowledgements reuse the request's event name; the two broadcast
// events and the init handshake have their own.
const (
	ServerEventInit             = ServerEvent("init")
	ServerEventJoinRoom         = ServerEvent("joinRoom")
	ServerEventCreateTransport  = ServerEvent("createTransport")
	ServerEventConnectTransport = ServerEvent("connectTransport")
	ServerEventProduce          = ServerEvent("produce")
	ServerEventConsume          = ServerEvent("consume")
	ServerEventResume           = ServerEvent("resume")
	ServerEventNewProducer      = ServerEvent("newProducer")
	ServerEventProducerClosed   = ServerEvent("producerClosed")
)

type RTPParameters struct {
	MimeType    string `json:"mimeType"`
	PayloadType uint8  `json:"payloadType"`
	ClockRate   uint32 `json:"clockRate"`
	Channels    uint16 `json:"channels,omitempty"`
	SSRC        uint32 `json:"ssrc"`
}

type RTPCodecCapability struct {
	MimeType  string `json:"mimeType"`
	ClockRate uint32 `json:"clockRate"`
	Channels  uint16 `json:"channels,omitempty"`
}

type RTPCapabilities struct {
	Codecs []RTPCodecCapability `json:"codecs"`
}

type ClientMessage struct {
	Event            ClientEvent              `json:"event"`
	JoinRoom         *JoinRoomRequest         `json:"joinRoom,omitempty"`
	CreateTransport  *CreateTransportRequest  `json:"createTransport,omitempty"`
	ConnectTransport *ConnectTransportRequest `json:"connectTransport,omitempty"`
	Produce          *ProduceRequest          `json:"produce,omitempty"`
	Consume          *ConsumeRequest          `json:"consume,omitempty"`
	Resume           *ResumeRequest           `json:"resume,omitempty"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type CreateTransportRequest struct {
	RoomID     string `json:"roomId"`
	IsProducer bool   `json:"isProducer"`
}

type ConnectTransportRequest struct {
	RoomID         string                 `json:"roomId"`
	TransportID    string                 `json:"transportId"`
	DTLSParameters webrtc.DTLSParameters  `json:"dtlsParameters"`
	ICEParameters  *webrtc.ICEParameters  `json:"iceParameters,omitempty"`
	ICECandidates  []webrtc.ICECandidate  `json:"iceCandidates,omitempty"`
}

type ProduceRequest struct {
	RoomID        string        `json:"roomId"`
	TransportID   string        `json:"transportId"`
	Kind          string        `json:"kind"`
	RTPParameters RTPParameters `json:"rtpParameters"`
}

type ConsumeRequest struct {
	RoomID          string          `json:"roomId"`
	TransportID     string          `json:"transportId"`
	ProducerID      string          `json:"producerId"`
	RTPCapabilities RTPCapabilities `json:"rtpCapabilities"`
}

type ResumeRequest struct {
	RoomID     string `json:"roomId"`
	ConsumerID string `json:"consumerId"`
}

type ServerMessage struct {
	Event       ServerEvent       `json:"event"`
	Success     *bool             `json:"success,omitempty"`
	Error       *string           `json:"error,omitempty"`
	Init        *InitMessage      `json:"init,omitempty"`
	Transport   *TransportCreated `json:"transport,omitempty"`
	Produced    *ProducedAck      `json:"produced,omitempty"`
	Consumed    *ConsumedAck      `json:"consumed,omitempty"`
	NewProducer *NewProducerEvent `json:"newProducer,omitempty"`
}

type InitMessage struct {
	PcConfig PeerConnectionConfig `json:"pcConfig"`
}

type TransportCreated struct {
	ID             string                `json:"id"`
	ICEParameters  webrtc.ICEParameters  `json:"iceParameters"`
	ICECandidates  []webrtc.ICECandidate `json:"iceCandidates"`
	DTLSParameters webrtc.DTLSParameters `json:"dtlsParameters"`
}

type ProducedAck struct {
	ID string `json:"id"`
}

type ConsumedAck struct {
	ID            string        `json:"id"`
	ProducerID    string        `json:"producerId"`
	Kind          string        `json:"kind"`
	RTPParameters RTPParameters `json:"rtpParameters"`
}

type NewProducerEvent struct {
	ProducerID string `json:"producerId"`
	Kind       string `json:"kind"`
}

func Ok(event ServerEvent) *ServerMessage {
	success := true
	return &ServerMessage{Event: event, Success: &success}
}

func Failed(event ServerEvent, err error) *ServerMessage {
	success := false
	msg := err.Error()
	return &ServerMessage{Event: event, Success: &success, Error: &msg}
}
