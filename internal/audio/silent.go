//go:build !((linux && cgo) || windows || darwin)

package audio

// SpeakerAvailable reports whether this build can drive the sound card.
// The speaker needs cgo on this platform.
const SpeakerAvailable = false

func defaultBackend() backend {
	return newClockBackend()
}
