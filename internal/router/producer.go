package router

import (
	"fmt"
	"sync/atomic"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
)

// pionProducer receives one RTP stream from a client and feeds it into
// a broadcaster that consumers attach to.
type pionProducer struct {
	id        string
	kind      domain.MediaKind
	rtp       domain.RTPParameters
	transport *pionTransport

	receiver    *webrtc.RTPReceiver
	broadcaster *packetBroadcaster

	closed atomic.Bool
}

func newPionProducer(t *pionTransport, kind domain.MediaKind, rtp domain.RTPParameters) (*pionProducer, error) {
	codecType := webrtc.NewRTPCodecType(string(kind))
	if codecType == webrtc.RTPCodecType(0) {
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}

	receiver, err := t.router.api.NewRTPReceiver(codecType, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("failed to create RTP receiver: %w", err)
	}

	err = receiver.Receive(webrtc.RTPReceiveParameters{
		Encodings: []webrtc.RTPDecodingParameters{
			{
				RTPCodingParameters: webrtc.RTPCodingParameters{
					SSRC:        webrtc.SSRC(rtp.SSRC),
					PayloadType: webrtc.PayloadType(rtp.PayloadType),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start receiving: %w", err)
	}

	producer := &pionProducer{
		id:        uuid.NewString(),
		kind:      kind,
		rtp:       rtp,
		transport: t,
		receiver:  receiver,
	}

	producer.broadcaster = newPacketBroadcaster(receiver.Track(), producer.id)

	return producer, nil
}

func (p *pionProducer) ID() string {
	return p.id
}

func (p *pionProducer) Kind() domain.MediaKind {
	return p.kind
}

// requestKeyFrame relays a consumer's PLI back to the producing client.
func (p *pionProducer) requestKeyFrame() error {
	if p.closed.Load() {
		return nil
	}
	metrics.PLIRequestsTotal.Inc()
	_, err := p.transport.dtls.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: p.rtp.SSRC},
	})
	return err
}

func (p *pionProducer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.transport.router.producers.Delete(p.id)
	p.broadcaster.Stop()
	metrics.ActiveProducers.Dec()

	return p.receiver.Stop()
}
