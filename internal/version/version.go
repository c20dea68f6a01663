// Package version reports the build identity set via ldflags or VCS stamping.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	tag       = "dev" // set via ldflags
	commit    = "123abc"
	buildTime = "now"
)

const (
	unsetCommit    = "123abc"
	unsetBuildTime = "now"
	releaseURL     = "https://github.com/lrdgdown-eng/etiquetado/releases/tag/%s"
)

// Info is the resolved build identity
type Info struct {
	Tag       string `json:"tag"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// buildInfoReader is a function type that can be mocked in tests
var buildInfoReader = debug.ReadBuildInfo

// Get resolves the build identity. ldflags values win; VCS settings fill the
// fields ldflags left unset.
func Get() Info {
	info := Info{Tag: tag, Commit: commit, BuildTime: buildTime}

	build, ok := buildInfoReader()
	if !ok {
		return info
	}
	for _, setting := range build.Settings {
		switch {
		case setting.Key == "vcs.revision" && commit == unsetCommit:
			info.Commit = setting.Value
		case setting.Key == "vcs.time" && buildTime == unsetBuildTime:
			info.BuildTime = setting.Value
		}
	}
	return info
}

// Tag returns the release tag
func Tag() string {
	return tag
}

// String renders the version banner printed by the version command
func String() string {
	info := Get()
	return fmt.Sprintf("%s (%s) built at %s\n"+releaseURL, info.Tag, info.Commit, info.BuildTime, info.Tag)
}
