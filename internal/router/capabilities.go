package router

import (
	"strings"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/samber/lo"
)

// capabilitiesMatch reports whether a consuming client that advertises
// caps can decode the producer's stream. Mime type matching is
// case-insensitive; a zero channel count on either side means "don't
// care", which keeps mono/stereo negotiation out of the relay.
func capabilitiesMatch(producer domain.RTPParameters, caps domain.RTPCapabilities) bool {
	return lo.SomeBy(caps.Codecs, func(codec domain.RTPCodecCapability) bool {
		if !strings.EqualFold(codec.MimeType, producer.MimeType) {
			return false
		}
		if codec.ClockRate != producer.ClockRate {
			return false
		}
		if codec.Channels != 0 && producer.Channels != 0 && codec.Channels != producer.Channels {
			return false
		}
		return true
	})
}
