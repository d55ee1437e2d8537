package compiler

import "context"

// Level is the one-time startup capability level (§4.5 "capabilities
// discovery"). The orchestrator refuses any work when Insufficient.
type Level string

const (
	Full         Level = "full"         // native + cross available
	Limited      Level = "limited"      // native only, supports more than the host triple
	Minimal      Level = "minimal"      // native only, host triple only
	Insufficient Level = "insufficient" // no native compiler
)

// Report is the result of a one-time capability probe.
type Report struct {
	Level           Level
	HostTriple      string
	NativeAvailable bool
	CrossAvailable  bool
	Details         map[string]string // backend name -> probe error message, if any
}

// referenceTriples is consulted only to distinguish Limited ("native
// backend can target more than just this host") from Minimal ("native
// backend only targets the host triple") during discovery; it is not an
// exhaustive list of supported triples.
var referenceTriples = []string{
	"x86_64-unknown-linux-gnu",
	"aarch64-unknown-linux-gnu",
	"x86_64-apple-darwin",
	"aarch64-apple-darwin",
	"x86_64-pc-windows-msvc",
}

// Discover probes every registered backend once and classifies the overall
// capability level, grounded on original_source's cli/options.rs +
// modules/compiler.rs toolchain-probe shape, reimplemented with
// exec.LookPath-style Probe calls on each backend.
func Discover(ctx context.Context, reg *Registry, hostTriple string) Report {
	report := Report{HostTriple: hostTriple, Details: map[string]string{}}

	var nativeOK, crossOK, nativeBeyondHost bool
	for _, b := range reg.ordered() {
		if err := b.Probe(ctx); err != nil {
			report.Details[b.Name()] = err.Error()
			continue
		}

		if !b.SupportsTarget(hostTriple) {
			continue
		}

		if crossLike(b) {
			crossOK = true
			continue
		}

		nativeOK = true
		for _, triple := range referenceTriples {
			if triple != hostTriple && b.SupportsTarget(triple) {
				nativeBeyondHost = true
			}
		}
	}

	report.NativeAvailable = nativeOK
	report.CrossAvailable = crossOK

	switch {
	case nativeOK && crossOK:
		report.Level = Full
	case nativeOK && nativeBeyondHost:
		report.Level = Limited
	case nativeOK:
		report.Level = Minimal
	default:
		report.Level = Insufficient
	}

	return report
}

// crossLike distinguishes a cross-compilation backend from a native one by
// priority band: native backends register at NativePriority, cross
// backends at CrossPriority or lower precedence.
func crossLike(b Backend) bool {
	return b.Priority() >= CrossPriority
}
