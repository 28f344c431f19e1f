package api

import "github.com/pion/webrtc/v4"

type IceServer struct {
	URLs       []string `json:"urls" yaml:"urls"`
	Username   string   `json:"username,omitempty" yaml:"username,omitempty"`
	Credential string   `json:"credential,omitempty" yaml:"credential,omitempty"`
}

// PeerConnectionConfig is sent to clients on connect so they can build
// their side of the transport, and feeds the engine's ICE gathering.
type PeerConnectionConfig struct {
	IceServers []IceServer `json:"iceServers" yaml:"iceServers"`
}

func DefaultPeerConnectionConfig() PeerConnectionConfig {
	return PeerConnectionConfig{
		IceServers: []IceServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

func (c PeerConnectionConfig) GatherOptions() webrtc.ICEGatherOptions {
	servers := make([]webrtc.ICEServer, 0, len(c.IceServers))
	for _, s := range c.IceServers {
		servers = append(servers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return webrtc.ICEGatherOptions{ICEServers: servers}
}
