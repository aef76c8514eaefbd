package fetch

import (
	"net/url"
	"strings"
)

// Channel is the resolution path chosen for a reference.
type Channel int

const (
	// ChannelInline resolves a self-contained data: URI.
	ChannelInline Channel = iota
	// ChannelLocal resolves a host-less reference against the attachments.
	ChannelLocal
	// ChannelNetwork resolves a reference with a host over the network.
	ChannelNetwork
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelInline:
		return "inline"
	case ChannelLocal:
		return "local"
	case ChannelNetwork:
		return "network"
	default:
		return "unknown"
	}
}

const inlineScheme = "data:"

// Classify decides which channel resolves reference.
// It depends on the reference string alone and never fails: references that do not
// parse are classified here and rejected later, during resolution.
func Classify(reference string) Channel {
	if isInline(reference) {
		return ChannelInline
	}

	u, err := url.Parse(reference)
	if err != nil {
		if strings.Contains(reference, "//") {
			return ChannelNetwork
		}
		return ChannelLocal
	}
	if u.Host == "" {
		return ChannelLocal
	}
	return ChannelNetwork
}

// AttachmentKey returns the attachment name a local reference points to:
// its path with a single leading separator removed.
func AttachmentKey(reference string) string {
	p := reference
	if u, err := url.Parse(reference); err == nil {
		p = u.Path
	}
	return strings.TrimPrefix(p, "/")
}

func isInline(reference string) bool {
	return len(reference) >= len(inlineScheme) &&
		strings.EqualFold(reference[:len(inlineScheme)], inlineScheme)
}
