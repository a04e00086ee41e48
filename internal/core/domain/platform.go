package domain

import (
	"fmt"
	"runtime"
)

// Platform describes the host a bottle must be compatible with.
type Platform struct {
	// OS is a GOOS value, "darwin" or "linux".
	OS string

	// Arch is a Homebrew architecture name, "x86_64" or "arm64".
	Arch string

	// MacOS is the macOS release codename ("sonoma"), empty on linux.
	MacOS string
}

// macOSReleases orders the supported macOS codenames, newest first. A host
// running a newer release accepts bottles built for any older one of the
// same architecture.
var macOSReleases = []string{
	"sequoia",
	"sonoma",
	"ventura",
	"monterey",
	"big_sur",
}

// DetectPlatform builds the Platform for the running host. macOS is the
// release codename to assume on darwin; it is ignored on linux.
func DetectPlatform(macOS string) Platform {
	arch := "x86_64"
	if runtime.GOARCH == "arm64" {
		arch = "arm64"
	}
	p := Platform{OS: runtime.GOOS, Arch: arch}
	if p.OS == "darwin" {
		if macOS == "" {
			macOS = macOSReleases[0]
		}
		p.MacOS = macOS
	}
	return p
}

// Tag returns the exact Homebrew bottle tag for the platform:
// "x86_64_linux", "arm64_sonoma", or bare "sonoma" for x86_64 macOS.
func (p Platform) Tag() string {
	if p.OS == "linux" {
		return p.Arch + "_linux"
	}
	if p.Arch == "x86_64" {
		return p.MacOS
	}
	return p.Arch + "_" + p.MacOS
}

// CandidateTags returns the ordered compatibility chain for the platform:
// the exact tag first, then bottles built for older compatible releases of
// the same architecture, then the architecture-independent "all" tag.
func (p Platform) CandidateTags() []string {
	if p.OS == "linux" {
		return []string{p.Tag(), "all"}
	}

	tags := make([]string, 0, len(macOSReleases)+1)
	seen := false
	for _, release := range macOSReleases {
		if release == p.MacOS {
			seen = true
		}
		if !seen {
			continue
		}
		if p.Arch == "x86_64" {
			tags = append(tags, release)
		} else {
			tags = append(tags, p.Arch+"_"+release)
		}
	}
	if !seen {
		// Unknown (presumably newer) release: accept everything we know.
		tags = append(tags, p.Tag())
		for _, release := range macOSReleases {
			if p.Arch == "x86_64" {
				tags = append(tags, release)
			} else {
				tags = append(tags, p.Arch+"_"+release)
			}
		}
	}
	return append(tags, "all")
}

func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.OS, p.Arch)
}
