package config

import (
	"time"

	"github.com/courtside/stream-relay/internal/api"
	"github.com/pion/webrtc/v4"
)

type AppConfig struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Security SecurityConfig `json:"security" yaml:"security"`
	WebRTC   WebRTCConfig   `json:"webrtc" yaml:"webrtc"`
	Stream   StreamConfig   `json:"stream" yaml:"stream"`
}

type ServerConfig struct {
	Port     int    `json:"port" yaml:"port"`
	PublicIP string `json:"publicIp" yaml:"publicIp"`
	LogLevel string `json:"logLevel" yaml:"logLevel"`
}

type SecurityConfig struct {
	JWTSecret       *string `json:"jwtSecret" yaml:"jwtSecret"`
	AdminCredential *string `json:"adminCredential" yaml:"adminCredential"`
}

type WebRTCConfig struct {
	PortMin              uint16                   `json:"portMin" yaml:"portMin"`
	PortMax              uint16                   `json:"portMax" yaml:"portMax"`
	PeerConnectionConfig api.PeerConnectionConfig `json:"peerConnectionConfig" yaml:"peerConnectionConfig"`
	Codecs               []Codec                  `json:"codecs" yaml:"codecs"`
	DisableAudio         bool                     `json:"disableAudio" yaml:"disableAudio"`
}

type StreamConfig struct {
	RoomIdleGrace time.Duration `json:"roomIdleGrace" yaml:"roomIdleGrace"`
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
	DataDir       string        `json:"dataDirectory" yaml:"dataDirectory"`
}

type Codec struct {
	Params webrtc.RTPCodecParameters `json:"params"`
	Type   webrtc.RTPCodecType       `json:"type"`
}

func DefaultAppConfig() AppConfig {
	adminPassword := "live"
	return AppConfig{
		Server: ServerConfig{
			Port:     8080,
			PublicIP: "",
			LogLevel: "info",
		},
		Security: SecurityConfig{
			JWTSecret:       nil,
			AdminCredential: &adminPassword,
		},
		WebRTC: WebRTCConfig{
			PortMin:              10000,
			PortMax:              20000,
			PeerConnectionConfig: api.DefaultPeerConnectionConfig(),
			Codecs:               DefaultCodecs(),
			DisableAudio:         false,
		},
		Stream: StreamConfig{
			RoomIdleGrace: 5 * time.Minute,
			SweepInterval: 30 * time.Second,
			DataDir:       "./data",
		},
	}
}

func DefaultCodecs() []Codec {
	return []Codec{
		{
			Params: webrtc.RTPCodecParameters{
				RTPCodecCapability: webrtc.RTPCodecCapability{
					MimeType:  "video/VP8",
					ClockRate: 90000,
					Channels:  0,
					RTCPFeedback: []webrtc.RTCPFeedback{
						{Type: "nack"},
						{Type: "nack", Parameter: "pli"},
						{Type: "ccm", Parameter: "fir"},
						{Type: "goog-remb"},
					},
				},
				PayloadType: 96,
			},
			Type: webrtc.RTPCodecTypeVideo,
		},
		{
			Params: webrtc.RTPCodecParameters{
				RTPCodecCapability: webrtc.RTPCodecCapability{
					MimeType:  "audio/opus",
					ClockRate: 48000,
					Channels:  2,
				},
				PayloadType: 111,
			},
			Type: webrtc.RTPCodecTypeAudio,
		},
	}
}
