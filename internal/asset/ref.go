package asset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind selects the canonicalization pipeline for an admitted file.
type Kind int

const (
	KindAudio Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Ext returns the canonical form's file extension.
func (k Kind) Ext() string {
	switch k {
	case KindAudio:
		return "mp3"
	case KindImage:
		return "png"
	default:
		return "bin"
	}
}

// Ref identifies a stored canonical asset by the SHA-1 of its bytes.
type Ref struct {
	Digest string
	Ext    string
}

// Name is the object's file name, "<digest>.<ext>".
func (r Ref) Name() string {
	return r.Digest + "." + r.Ext
}

// IsZero reports whether the ref identifies nothing.
func (r Ref) IsZero() bool {
	return r.Digest == ""
}

// ParseRefName splits "<digest>.<ext>" back into a Ref. The digest must be
// 40 hex characters.
func ParseRefName(name string) (Ref, error) {
	digest, ext, ok := strings.Cut(name, ".")
	if !ok || ext == "" {
		return Ref{}, fmt.Errorf("asset ref %q: missing extension", name)
	}
	if len(digest) != 40 {
		return Ref{}, fmt.Errorf("asset ref %q: digest must be 40 hex characters", name)
	}
	for _, c := range digest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Ref{}, fmt.Errorf("asset ref %q: digest is not lowercase hex", name)
		}
	}
	return Ref{Digest: digest, Ext: ext}, nil
}

// Options selects the audio processing applied during admission. Options are
// part of the memoization key: the same source with different options is a
// different asset. Image admission ignores them.
type Options struct {
	// GainNormalize raises quiet sources toward the configured headroom and
	// applies dynamic-range normalization.
	GainNormalize bool
	// SilencePad adds one second of silence before and after the audio.
	SilencePad bool
	// TrimLead drops this much of the source's beginning.
	TrimLead time.Duration
}

// encode renders the options as a stable string for the memo key.
func (o Options) encode() string {
	var b strings.Builder
	b.WriteString("gain=")
	b.WriteString(strconv.FormatBool(o.GainNormalize))
	b.WriteString(";pad=")
	b.WriteString(strconv.FormatBool(o.SilencePad))
	b.WriteString(";trim=")
	b.WriteString(strconv.FormatFloat(o.TrimLead.Seconds(), 'f', -1, 64))
	return b.String()
}
