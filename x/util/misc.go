package util

import (
	"runtime/debug"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	GitHash   string `json:"gitHash"`
	GoVersion string `json:"goVersion"`
}

// GetGitHash returns the git hash of the current build.
func GetGitHash() string {
	hash := "unknown"
	if info, available := debug.ReadBuildInfo(); available {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				hash = setting.Value
				break
			}
		}
	}
	return hash
}

// GetGitShortHash returns the short git hash of the current build.
func GetGitShortHash() string {
	hash := GetGitHash()
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

// GetBuildInfo returns the build information, preferring version when it is set by the linker
func GetBuildInfo(version string) BuildInfo {
	info := BuildInfo{
		Version:   version,
		GitHash:   GetGitShortHash(),
		GoVersion: "unknown",
	}
	if build, available := debug.ReadBuildInfo(); available {
		info.GoVersion = build.GoVersion
		if info.Version == "" || info.Version == "unknown" {
			info.Version = build.Main.Version
		}
	}
	return info
}
