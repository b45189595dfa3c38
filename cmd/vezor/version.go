package main

import (
	"runtime/debug"

	vezor "github.com/vezor/vezor-go"
)

// version is injected by release builds via -ldflags "-X main.version=x.y.z".
var version string

// cliVersion resolves what `vezor --version` prints: the injected release
// version, else the module version for go-install builds, else the SDK
// version marked as a source build.
func cliVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return vezor.Version + "-dev"
}
