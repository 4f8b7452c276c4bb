package revision

import (
	"flag"
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build information. Populated at build-time.
var commit = "no commit"
var tag = "no tag"

// runtimeVersion is the version of the Go compiler used.
var runtimeVersion = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)

// Usage returns a function that prints the usage and the build information.
func Usage(binname string) func() {
	return func() {
		fmt.Println("Built on", runtimeVersion, "at", commit, "/", tag)
		fmt.Printf("Usage: %s [options]\n", binname)
		flag.PrintDefaults()
	}
}

// Version returns the release tag, falling back to the module version
// recorded in the binary.
func Version() string {
	if tag != "no tag" {
		return tag
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "devel"
}
