package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/pion/webrtc/v4"
)

const (
	transportStateNew = int32(iota)
	transportStateConnecting
	transportStateConnected
	transportStateClosed
)

type pionTransport struct {
	id     string
	router *PionRouter

	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport

	state atomic.Int32

	mu            sync.Mutex
	candidates    []webrtc.ICECandidate
	dtlsObservers []func(webrtc.DTLSTransportState)
	producers     []*pionProducer
	consumers     []*pionConsumer
}

func newPionTransport(id string, r *PionRouter, gatherer *webrtc.ICEGatherer,
	ice *webrtc.ICETransport, dtls *webrtc.DTLSTransport) *pionTransport {

	t := &pionTransport{
		id:       id,
		router:   r,
		gatherer: gatherer,
		ice:      ice,
		dtls:     dtls,
	}

	dtls.OnStateChange(func(state webrtc.DTLSTransportState) {
		slog.Debug("dtls state change", "transportId", id, "state", state.String())
		metrics.DTLSStateChanges.WithLabelValues(state.String()).Inc()

		t.mu.Lock()
		observers := make([]func(webrtc.DTLSTransportState), len(t.dtlsObservers))
		copy(observers, t.dtlsObservers)
		t.mu.Unlock()

		for _, observer := range observers {
			observer(state)
		}
	})

	return t
}

// gather runs local candidate collection to completion. A nil candidate
// from the gatherer marks the end of gathering.
func (t *pionTransport) gather(ctx context.Context) error {
	done := make(chan struct{})

	t.gatherer.OnLocalCandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			close(done)
			return
		}
		t.mu.Lock()
		t.candidates = append(t.candidates, *candidate)
		t.mu.Unlock()
	})

	if err := t.gatherer.Gather(); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *pionTransport) ID() string {
	return t.id
}

func (t *pionTransport) Info() domain.TransportInfo {
	iceParams, err := t.gatherer.GetLocalParameters()
	if err != nil {
		slog.Error("failed to read local ICE parameters", "transportId", t.id, "error", err)
	}

	dtlsParams, err := t.dtls.GetLocalParameters()
	if err != nil {
		slog.Error("failed to read local DTLS parameters", "transportId", t.id, "error", err)
	}

	t.mu.Lock()
	candidates := make([]webrtc.ICECandidate, len(t.candidates))
	copy(candidates, t.candidates)
	t.mu.Unlock()

	return domain.TransportInfo{
		ID:             t.id,
		ICEParameters:  iceParams,
		ICECandidates:  candidates,
		DTLSParameters: dtlsParams,
	}
}

func (t *pionTransport) Connect(ctx context.Context, params domain.ConnectParameters) error {
	if t.state.Load() == transportStateClosed {
		return domain.ErrTransportClosed
	}
	if !t.state.CompareAndSwap(transportStateNew, transportStateConnecting) {
		return errors.New("transport already connected")
	}

	if params.ICE == nil {
		t.state.CompareAndSwap(transportStateConnecting, transportStateNew)
		return errors.New("remote ICE parameters required")
	}

	if err := t.ice.SetRemoteCandidates(params.Candidates); err != nil {
		t.state.CompareAndSwap(transportStateConnecting, transportStateNew)
		return fmt.Errorf("failed to set remote candidates: %w", err)
	}

	// The client drives connectivity checks, this side stays controlled
	// like an ICE-lite server.
	role := webrtc.ICERoleControlled
	if err := t.ice.Start(nil, *params.ICE, &role); err != nil {
		t.state.CompareAndSwap(transportStateConnecting, transportStateNew)
		return fmt.Errorf("failed to start ICE: %w", err)
	}

	if err := t.dtls.Start(params.DTLS); err != nil {
		t.state.CompareAndSwap(transportStateConnecting, transportStateNew)
		return fmt.Errorf("failed to start DTLS: %w", err)
	}

	if err := t.completeConnect(); err != nil {
		return err
	}
	slog.Info("transport connected", "transportId", t.id)
	return nil
}

// completeConnect publishes the connected state. A transport that was
// closed while the handshake was in flight stays closed.
func (t *pionTransport) completeConnect() error {
	if !t.state.CompareAndSwap(transportStateConnecting, transportStateConnected) {
		return domain.ErrTransportClosed
	}
	return nil
}

func (t *pionTransport) Produce(ctx context.Context, kind domain.MediaKind, rtp domain.RTPParameters) (domain.Producer, error) {
	if t.state.Load() == transportStateClosed {
		return nil, domain.ErrTransportClosed
	}

	if t.router.disableAudio && kind == domain.MediaKindAudio {
		return nil, errors.New("audio is disabled")
	}

	producer, err := newPionProducer(t, kind, rtp)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.producers = append(t.producers, producer)
	t.mu.Unlock()

	t.router.producers.Store(producer.ID(), producer)
	metrics.ProducersCreatedTotal.Inc()
	metrics.ActiveProducers.Inc()

	return producer, nil
}

func (t *pionTransport) Consume(ctx context.Context, producerID string, caps domain.RTPCapabilities, paused bool) (domain.Consumer, error) {
	if t.state.Load() == transportStateClosed {
		return nil, domain.ErrTransportClosed
	}

	producer, ok := t.router.producers.Load(producerID)
	if !ok {
		return nil, domain.ErrProducerNotFound
	}

	if !capabilitiesMatch(producer.rtp, caps) {
		return nil, domain.ErrIncompatibleCapabilities
	}

	consumer, err := newPionConsumer(t, producer, paused)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.consumers = append(t.consumers, consumer)
	t.mu.Unlock()

	metrics.ConsumersCreatedTotal.Inc()
	metrics.ActiveConsumers.Inc()

	return consumer, nil
}

func (t *pionTransport) OnDTLSStateChange(f func(state webrtc.DTLSTransportState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dtlsObservers = append(t.dtlsObservers, f)
}

func (t *pionTransport) Close() error {
	if old := t.state.Swap(transportStateClosed); old == transportStateClosed {
		return nil
	}

	t.mu.Lock()
	producers := t.producers
	consumers := t.consumers
	t.producers = nil
	t.consumers = nil
	t.mu.Unlock()

	for _, p := range producers {
		_ = p.Close()
	}
	for _, c := range consumers {
		_ = c.Close()
	}

	err := t.dtls.Stop()
	if stopErr := t.ice.Stop(); err == nil {
		err = stopErr
	}

	slog.Debug("transport closed", "transportId", t.id)
	return err
}
