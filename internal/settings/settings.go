// Package settings resolves capture quality parameters into the constraint
// set and codec preference list for one recording session.
//
// Resolution is pure data: given a [capture.Kind] and raw quality numbers it
// produces an immutable [Settings] value. Codec preference order is a fixed
// policy per kind, not negotiated at runtime — the session simply selects
// the first candidate the capture subsystem reports as supported.
package settings

import (
	"strings"

	"github.com/mediasmith/captor/pkg/capture"
)

// screenFrameRate is the ideal frame rate requested for display capture.
// Screen content changes slowly compared to camera video; 24 keeps encoded
// size down without visible stutter.
const screenFrameRate = 24

// Codec candidate lists per capture kind, in fixed preference order.
//
// Screen capture prefers VP8 first because it is the most broadly supported
// codec for display surfaces, whereas camera video prefers VP9 for its
// better compression at the same bit rate.
var (
	audioCandidates = []string{
		"audio/webm;codecs=opus",
		"audio/ogg;codecs=opus",
	}
	videoCandidates = []string{
		"video/webm;codecs=vp9,opus",
		"video/webm;codecs=h264,opus",
		"video/webm;codecs=vp8,opus",
	}
	screenCandidates = []string{
		"video/webm;codecs=vp8,opus",
		"video/webm;codecs=vp9,opus",
		"video/webm;codecs=h264,opus",
	}
)

// Quality holds the raw quality parameters supplied by configuration.
type Quality struct {
	// AudioBitRate is the target audio bit rate in bits per second.
	AudioBitRate int

	// VideoBitRate is the target video bit rate in bits per second.
	// Ignored for audio capture.
	VideoBitRate int

	// Width and Height are the requested video dimensions in pixels.
	// Ignored for audio capture.
	Width  int
	Height int
}

// Settings is the resolved, immutable capture configuration for one
// session: the device constraint set plus the ordered codec candidates.
type Settings struct {
	// Kind is the capture kind the settings were resolved for.
	Kind capture.Kind

	// AudioBitRate is the target audio bit rate in bits per second.
	AudioBitRate int

	// VideoBitRate is the target video bit rate in bits per second.
	VideoBitRate int

	// Constraints is the device-request descriptor for the primary
	// acquisition. For screen capture this requests the display surface;
	// the microphone is acquired separately via [Settings.MicConstraints].
	Constraints capture.Constraints

	// CodecCandidates is the ordered list of codec identifiers to try.
	CodecCandidates []string
}

// Resolve builds the [Settings] for the given kind and quality parameters.
func Resolve(kind capture.Kind, q Quality) Settings {
	s := Settings{
		Kind:         kind,
		AudioBitRate: q.AudioBitRate,
		VideoBitRate: q.VideoBitRate,
	}

	switch kind {
	case capture.KindAudio:
		s.Constraints = capture.Constraints{Audio: true}
		s.CodecCandidates = audioCandidates

	case capture.KindVideo:
		s.Constraints = capture.Constraints{
			Audio:  true,
			Video:  true,
			Width:  q.Width,
			Height: q.Height,
		}
		s.CodecCandidates = videoCandidates

	case capture.KindScreen:
		// Dimensions are upper bounds, not ideals: some platforms
		// reject ideal constraints for display surfaces. System audio
		// is excluded — the microphone track is composed in instead.
		s.Constraints = capture.Constraints{
			Display:          true,
			SystemAudio:      false,
			Width:            q.Width,
			Height:           q.Height,
			DimensionsAreMax: true,
			FrameRate:        screenFrameRate,
		}
		s.CodecCandidates = screenCandidates
	}

	return s
}

// MicConstraints returns the constraint set for the separately acquired
// microphone stream used by screen capture composition.
func (s Settings) MicConstraints() capture.Constraints {
	return capture.Constraints{Audio: true}
}

// PickCodec returns the first codec candidate the device reports as
// supported. When no candidate is supported the empty string is returned
// and capture proceeds with the adapter's default codec.
func (s Settings) PickCodec(dev capture.Device) string {
	for _, c := range s.CodecCandidates {
		if dev.Supports(c) {
			return c
		}
	}
	return ""
}

// RecorderOptions builds the [capture.RecorderOptions] for the selected
// mime type and the resolved bit rates.
func (s Settings) RecorderOptions(mimeType string) capture.RecorderOptions {
	opts := capture.RecorderOptions{
		MimeType:           mimeType,
		AudioBitsPerSecond: s.AudioBitRate,
	}
	if s.Kind != capture.KindAudio {
		opts.VideoBitsPerSecond = s.VideoBitRate
	}
	return opts
}

// ContainerExt maps a mime type onto the file extension used for the
// uploaded filename. Unknown or empty types default to "webm", the
// container every candidate list leads with.
func ContainerExt(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/ogg"), strings.HasPrefix(mimeType, "video/ogg"):
		return "ogg"
	case strings.HasPrefix(mimeType, "audio/mp4"), strings.HasPrefix(mimeType, "video/mp4"):
		return "mp4"
	default:
		return "webm"
	}
}
