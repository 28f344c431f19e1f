package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/pion/webrtc/v4"
)

const (
	rtpBufferSize   = 1500
	packetQueueSize = 100
)

var bufferPool = sync.Pool{
	New: func() any {
		return make([]byte, rtpBufferSize)
	},
}

type consumerSink struct {
	track  *webrtc.TrackLocalStaticRTP
	paused *atomic.Bool
}

// packetBroadcaster reads RTP from one producer track and fans each
// packet out to every attached consumer sink. Paused sinks are skipped
// without stalling the others; a full queue drops packets rather than
// blocking the read loop.
type packetBroadcaster struct {
	producerID string

	mu    sync.RWMutex
	sinks map[string]consumerSink

	ctx    context.Context
	cancel context.CancelFunc

	packetChan chan []byte
}

func newPacketBroadcaster(remoteTrack *webrtc.TrackRemote, producerID string) *packetBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	broadcaster := &packetBroadcaster{
		producerID: producerID,
		sinks:      make(map[string]consumerSink),
		ctx:        ctx,
		cancel:     cancel,
		packetChan: make(chan []byte, packetQueueSize),
	}

	go broadcaster.readLoop(remoteTrack)
	go broadcaster.writeLoop()

	return broadcaster
}

func (b *packetBroadcaster) readLoop(remoteTrack *webrtc.TrackRemote) {
	defer b.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		default:
		}

		buf := bufferPool.Get().([]byte)
		buf = buf[:cap(buf)]

		n, _, err := remoteTrack.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Debug("producer closed track", "producerId", b.producerID)
			} else {
				slog.Error("error reading from producer", "producerId", b.producerID, "error", err)
			}
			return
		}

		metrics.RelayPacketsTotal.WithLabelValues("received").Inc()
		metrics.RelayBytesTotal.WithLabelValues("received").Add(float64(n))

		select {
		case b.packetChan <- buf[:n]:
		default:
			bufferPool.Put(buf)
		}
	}
}

func (b *packetBroadcaster) writeLoop() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case pkt := <-b.packetChan:
			b.mu.RLock()
			for _, sink := range b.sinks {
				if sink.paused.Load() {
					continue
				}
				if _, err := sink.track.Write(pkt); err != nil {
					if errors.Is(err, io.ErrClosedPipe) {
						continue
					}
					slog.Error("error writing to consumer track", "producerId", b.producerID, "error", err)
					continue
				}
				metrics.RelayPacketsTotal.WithLabelValues("forwarded").Inc()
				metrics.RelayBytesTotal.WithLabelValues("forwarded").Add(float64(len(pkt)))
			}
			b.mu.RUnlock()

			bufferPool.Put(pkt[:cap(pkt)])
		}
	}
}

func (b *packetBroadcaster) AddSink(consumerID string, track *webrtc.TrackLocalStaticRTP, paused *atomic.Bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[consumerID] = consumerSink{track: track, paused: paused}
}

func (b *packetBroadcaster) RemoveSink(consumerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, consumerID)
}

func (b *packetBroadcaster) Stop() {
	b.cancel()
}
