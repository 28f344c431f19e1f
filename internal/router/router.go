// Package router drives the media engine. It owns ICE/DTLS transports,
// RTP receivers and senders, and fans incoming producer packets out to
// consumer tracks. Everything above it talks in terms of the domain
// interfaces and never sees pion types beyond the negotiation
// parameters that pass through to clients.
package router

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/courtside/stream-relay/internal/config"
	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/utils"
	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
)

type PionRouter struct {
	api           *webrtc.API
	gatherOptions webrtc.ICEGatherOptions
	disableAudio  bool

	// producers indexes every live producer by id so any transport in
	// any room can consume from it.
	producers *utils.SyncMapWrapper[string, *pionProducer]

	ctx    context.Context
	cancel context.CancelFunc
}

func NewPionRouter(cfg *config.WebRTCConfig, publicIP string) (*PionRouter, error) {
	debug.SetGCPercent(20)

	mediaEngine := &webrtc.MediaEngine{}
	for _, codec := range cfg.Codecs {
		if err := mediaEngine.RegisterCodec(codec.Params, codec.Type); err != nil {
			return nil, fmt.Errorf("failed to register codec: %w", err)
		}
	}

	interceptorRegistry := &interceptor.Registry{}

	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, fmt.Errorf("failed to register default interceptors: %w", err)
	}

	pliFactory, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to create PLI factory: %w", err)
	}
	interceptorRegistry.Add(pliFactory)

	se := webrtc.SettingEngine{}
	if len(cfg.PeerConnectionConfig.IceServers) == 0 && len(publicIP) > 0 {
		se.SetNAT1To1IPs([]string{publicIP}, webrtc.ICECandidateTypeHost)
	}

	if cfg.PortMin > 0 && cfg.PortMax > 0 {
		if err := se.SetEphemeralUDPPortRange(cfg.PortMin, cfg.PortMax); err != nil {
			return nil, fmt.Errorf("failed to set WebRTC port range: %w", err)
		}
	}

	webrtcApi := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
		webrtc.WithSettingEngine(se),
	)

	ctx, cancel := context.WithCancel(context.Background())

	return &PionRouter{
		api:           webrtcApi,
		gatherOptions: cfg.PeerConnectionConfig.GatherOptions(),
		disableAudio:  cfg.DisableAudio,
		producers:     utils.NewSyncMapWrapper[string, *pionProducer](),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// CreateTransport builds a fresh ICE+DTLS pair and gathers local
// candidates before returning, so the caller gets complete negotiation
// parameters in one shot.
func (r *PionRouter) CreateTransport(ctx context.Context) (domain.RouterTransport, error) {
	gatherer, err := r.api.NewICEGatherer(r.gatherOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportCreate, err)
	}

	ice := r.api.NewICETransport(gatherer)

	dtls, err := r.api.NewDTLSTransport(ice, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportCreate, err)
	}

	t := newPionTransport(uuid.NewString(), r, gatherer, ice, dtls)

	if err := t.gather(ctx); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportCreate, err)
	}

	return t, nil
}

func (r *PionRouter) CanConsume(producerID string, caps domain.RTPCapabilities) bool {
	producer, ok := r.producers.Load(producerID)
	if !ok {
		return false
	}
	return capabilitiesMatch(producer.rtp, caps)
}

func (r *PionRouter) Close() {
	r.cancel()

	r.producers.Range(func(_ string, p *pionProducer) bool {
		_ = p.Close()
		return true
	})
	r.producers.Clear()
}
