package api

import "github.com/courtside/stream-relay/internal/domain"

func ToDomainRTPParameters(p RTPParameters) domain.RTPParameters {
	return domain.RTPParameters{
		MimeType:    p.MimeType,
		PayloadType: p.PayloadType,
		ClockRate:   p.ClockRate,
		Channels:    p.Channels,
		SSRC:        p.SSRC,
	}
}

func ToApiRTPParameters(p domain.RTPParameters) RTPParameters {
	return RTPParameters{
		MimeType:    p.MimeType,
		PayloadType: p.PayloadType,
		ClockRate:   p.ClockRate,
		Channels:    p.Channels,
		SSRC:        p.SSRC,
	}
}

func ToDomainRTPCapabilities(c RTPCapabilities) domain.RTPCapabilities {
	codecs := make([]domain.RTPCodecCapability, len(c.Codecs))
	for i, codec := range c.Codecs {
		codecs[i] = domain.RTPCodecCapability{
			MimeType:  codec.MimeType,
			ClockRate: codec.ClockRate,
			Channels:  codec.Channels,
		}
	}
	return domain.RTPCapabilities{Codecs: codecs}
}

func ToTransportCreated(info domain.TransportInfo) *TransportCreated {
	return &TransportCreated{
		ID:             info.ID,
		ICEParameters:  info.ICEParameters,
		ICECandidates:  info.ICECandidates,
		DTLSParameters: info.DTLSParameters,
	}
}
