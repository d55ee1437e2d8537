package main

import goruntime "runtime"

// defaultHostTriple derives the running host's compiler target triple from
// GOOS/GOARCH, for commands invoked without an inventory-resolved host
// (capabilities probing, ad-hoc `run` against the local machine).
func defaultHostTriple() string {
	arch := ""
	switch goruntime.GOARCH {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}

	switch goruntime.GOOS {
	case "linux":
		return arch + "-unknown-linux-gnu"
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return "unknown"
	}
}
