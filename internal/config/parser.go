package config

import (
	"strings"
	"time"

	"github.com/courtside/stream-relay/internal/api"
	"github.com/pion/webrtc/v4"
)

type RawServerConfig struct {
	Port     *int    `yaml:"port" json:"port"`
	PublicIP *string `yaml:"publicIp" json:"publicIp"`
	LogLevel *string `yaml:"logLevel" json:"logLevel"`
}

func (r RawServerConfig) ToDomain() ServerConfig {
	var cfg ServerConfig
	if r.Port != nil {
		cfg.Port = *r.Port
	}
	if r.PublicIP != nil {
		cfg.PublicIP = *r.PublicIP
	}
	if r.LogLevel != nil {
		cfg.LogLevel = *r.LogLevel
	}
	return cfg
}

type RawSecurityConfig struct {
	JWTSecret       *string `yaml:"jwtSecret" json:"jwtSecret"`
	AdminCredential *string `yaml:"adminCredential" json:"adminCredential"`
}

func (r RawSecurityConfig) ToDomain() SecurityConfig {
	return SecurityConfig{
		JWTSecret:       r.JWTSecret,
		AdminCredential: r.AdminCredential,
	}
}

type RawWebRTCConfig struct {
	PortMin              *uint16                   `yaml:"portMin" json:"portMin"`
	PortMax              *uint16                   `yaml:"portMax" json:"portMax"`
	PeerConnectionConfig *api.PeerConnectionConfig `yaml:"peerConnectionConfig" json:"peerConnectionConfig"`
	Codecs               *[]RawCodec               `yaml:"codecs" json:"codecs"`
	DisableAudio         *bool                     `yaml:"disableAudio" json:"disableAudio"`
}

type RawCodec struct {
	Params struct {
		MimeType    string `json:"mimeType" yaml:"mimeType"`
		ClockRate   uint32 `json:"clockRate" yaml:"clockRate"`
		PayloadType uint8  `json:"payloadType" yaml:"payloadType"`
		Channels    uint16 `json:"channels" yaml:"channels"`
	} `json:"params" yaml:"params"`
	Type string `json:"type" yaml:"type"`
}

func (r RawWebRTCConfig) ToDomain() WebRTCConfig {
	var cfg WebRTCConfig
	if r.PortMin != nil {
		cfg.PortMin = *r.PortMin
	}
	if r.PortMax != nil {
		cfg.PortMax = *r.PortMax
	}
	if r.PeerConnectionConfig != nil {
		cfg.PeerConnectionConfig = *r.PeerConnectionConfig
	}
	if r.Codecs != nil {
		cfg.Codecs = parseCodecs(*r.Codecs)
	}
	if r.DisableAudio != nil {
		cfg.DisableAudio = *r.DisableAudio
	}
	return cfg
}

type RawStreamConfig struct {
	RoomIdleGrace *string `yaml:"roomIdleGrace" json:"roomIdleGrace"`
	SweepInterval *string `yaml:"sweepInterval" json:"sweepInterval"`
	DataDir       *string `yaml:"dataDirectory" json:"dataDirectory"`
}

func (r RawStreamConfig) ToDomain() (StreamConfig, error) {
	var cfg StreamConfig
	if r.RoomIdleGrace != nil {
		d, err := time.ParseDuration(*r.RoomIdleGrace)
		if err != nil {
			return StreamConfig{}, err
		}
		cfg.RoomIdleGrace = d
	}
	if r.SweepInterval != nil {
		d, err := time.ParseDuration(*r.SweepInterval)
		if err != nil {
			return StreamConfig{}, err
		}
		cfg.SweepInterval = d
	}
	if r.DataDir != nil {
		cfg.DataDir = *r.DataDir
	}
	return cfg, nil
}

func parseCodecs(rawCodecs []RawCodec) []Codec {
	result := make([]Codec, 0, len(rawCodecs))

	for _, rawCodec := range rawCodecs {
		capability := webrtc.RTPCodecCapability{
			MimeType:  rawCodec.Params.MimeType,
			ClockRate: rawCodec.Params.ClockRate,
			Channels:  rawCodec.Params.Channels,
		}

		if strings.HasPrefix(strings.ToLower(rawCodec.Params.MimeType), "video/") {
			capability.RTCPFeedback = []webrtc.RTCPFeedback{
				{Type: "nack"},
				{Type: "nack", Parameter: "pli"},
				{Type: "ccm", Parameter: "fir"},
				{Type: "goog-remb"},
			}
		}

		params := webrtc.RTPCodecParameters{
			RTPCodecCapability: capability,
			PayloadType:        webrtc.PayloadType(rawCodec.Params.PayloadType),
		}

		result = append(result, Codec{Params: params, Type: webrtc.NewRTPCodecType(rawCodec.Type)})
	}

	return result
}
