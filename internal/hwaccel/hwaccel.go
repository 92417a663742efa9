// Package hwaccel reports whether the running CPU has hardware AES
// acceleration, for diagnostics only — it never changes the
// CipherProvider's behavior, only what gets logged.
package hwaccel

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// HasAESHardwareSupport reports whether this CPU supports AES-NI (or the
// ARM/IBM equivalent), mirroring the detection the teacher gateway does
// for its own AEAD path.
func HasAESHardwareSupport() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	case "s390x":
		return cpu.S390X.HasAES
	default:
		return false
	}
}

// Info returns a small diagnostic map, suitable for a debug log line when
// a segment store starts up.
func Info() map[string]any {
	return map[string]any{
		"aes_hardware_support": HasAESHardwareSupport(),
		"architecture":         runtime.GOARCH,
		"go_version":           runtime.Version(),
	}
}
