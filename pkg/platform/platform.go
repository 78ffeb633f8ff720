// pkg/platform/platform.go
package platform

import (
	"fmt"
	"runtime"
)

// Platform identifies a binary cache platform double (cpu-os)
type Platform string

const (
	// Linux platforms
	X8664Linux   Platform = "x86_64-linux"
	I686Linux    Platform = "i686-linux"
	Aarch64Linux Platform = "aarch64-linux"
	Armv7lLinux  Platform = "armv7l-linux"

	// macOS platforms
	X8664Darwin   Platform = "x86_64-darwin"
	Aarch64Darwin Platform = "aarch64-darwin"
)

// All contains the platforms the release endpoint publishes builds for
var All = []Platform{
	X8664Linux,
	I686Linux,
	Aarch64Linux,
	Armv7lLinux,
	X8664Darwin,
	Aarch64Darwin,
}

// Detect maps the running GOOS/GOARCH to a platform double
func Detect() (Platform, error) {
	switch runtime.GOOS {
	case "linux":
		switch runtime.GOARCH {
		case "amd64":
			return X8664Linux, nil
		case "386":
			return I686Linux, nil
		case "arm64":
			return Aarch64Linux, nil
		case "arm":
			return Armv7lLinux, nil
		default:
			return "", fmt.Errorf("unsupported Linux architecture: %s", runtime.GOARCH)
		}

	case "darwin":
		switch runtime.GOARCH {
		case "amd64":
			return X8664Darwin, nil
		case "arm64":
			return Aarch64Darwin, nil
		default:
			return "", fmt.Errorf("unsupported Darwin architecture: %s", runtime.GOARCH)
		}

	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// IsValid checks if the platform is a known valid platform
func (p Platform) IsValid() bool {
	for _, valid := range All {
		if p == valid {
			return true
		}
	}
	return false
}
