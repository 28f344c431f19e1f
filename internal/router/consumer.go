package router

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
)

// pionConsumer sends one producer's stream to a single client. It
// starts paused; the client resumes it once its receiving side is wired
// up, which is what keeps the first keyframes from being wasted.
type pionConsumer struct {
	id         string
	producerID string
	kind       domain.MediaKind
	rtp        domain.RTPParameters

	transport *pionTransport
	producer  *pionProducer
	sender    *webrtc.RTPSender

	paused atomic.Bool
	closed atomic.Bool
}

func newPionConsumer(t *pionTransport, producer *pionProducer, paused bool) (*pionConsumer, error) {
	capability := webrtc.RTPCodecCapability{
		MimeType:  producer.rtp.MimeType,
		ClockRate: producer.rtp.ClockRate,
		Channels:  producer.rtp.Channels,
	}

	id := uuid.NewString()

	track, err := webrtc.NewTrackLocalStaticRTP(capability, id, producer.id)
	if err != nil {
		return nil, fmt.Errorf("failed to create local track: %w", err)
	}

	sender, err := t.router.api.NewRTPSender(track, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("failed to create RTP sender: %w", err)
	}

	sendParams := sender.GetParameters()
	if err := sender.Send(sendParams); err != nil {
		return nil, fmt.Errorf("failed to start sending: %w", err)
	}

	rtp := producer.rtp
	if len(sendParams.Encodings) > 0 {
		rtp.SSRC = uint32(sendParams.Encodings[0].SSRC)
	}

	consumer := &pionConsumer{
		id:         id,
		producerID: producer.id,
		kind:       producer.kind,
		rtp:        rtp,
		transport:  t,
		producer:   producer,
		sender:     sender,
	}
	consumer.paused.Store(paused)

	producer.broadcaster.AddSink(id, track, &consumer.paused)

	go consumer.rtcpLoop()

	return consumer, nil
}

func (c *pionConsumer) ID() string {
	return c.id
}

func (c *pionConsumer) ProducerID() string {
	return c.producerID
}

func (c *pionConsumer) Kind() domain.MediaKind {
	return c.kind
}

func (c *pionConsumer) RTPParameters() domain.RTPParameters {
	return c.rtp
}

func (c *pionConsumer) Paused() bool {
	return c.paused.Load()
}

func (c *pionConsumer) Resume() error {
	if c.closed.Load() {
		return domain.ErrTransportClosed
	}

	if !c.paused.CompareAndSwap(true, false) {
		return nil
	}

	slog.Debug("consumer resumed", "consumerId", c.id, "producerId", c.producerID)

	if c.kind == domain.MediaKindVideo {
		return c.producer.requestKeyFrame()
	}
	return nil
}

func (c *pionConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.producer.broadcaster.RemoveSink(c.id)
	metrics.ActiveConsumers.Dec()

	return c.sender.Stop()
}

// rtcpLoop relays feedback from the consuming client back toward the
// producer. Only PLI/FIR cross the relay; NACKs are absorbed here.
func (c *pionConsumer) rtcpLoop() {
	buf := make([]byte, rtpBufferSize)

	for {
		n, _, err := c.sender.Read(buf)
		if err != nil {
			return
		}

		packets, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			continue
		}

		for _, pkt := range packets {
			switch pkt.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				if c.paused.Load() {
					continue
				}
				if err := c.producer.requestKeyFrame(); err != nil {
					slog.Error("failed to relay PLI to producer", "producerId", c.producerID, "error", err)
					return
				}
			case *rtcp.TransportLayerNack:
				metrics.NACKRequestsTotal.Inc()
			}
		}
	}
}
