package inventory

import "sort"

// Resolve walks each host's ancestor groups and merges variables in the
// precedence order §3 defines (lowest to highest): defaults within the
// "all" root group, intermediate groups in topological order up the
// parent chain (deeper groups override shallower), then direct host
// variables. Task-level overrides are not merged by Resolve. Ties
// between sibling groups at the same depth are broken by lexicographic
// group name, making the merge deterministic regardless of how many
// goroutines drove the walk (§8 invariant 2).
//
// Resolve mutates each Host's Vars in place and sets its TargetTriple; it
// must run exactly once, after CheckCycles has confirmed the hierarchy is
// acyclic (§3 lifecycle: "variables mutated only during the resolve
// pass").
func Resolve(inv *Inventory) error {
	if err := CheckCycles(inv); err != nil {
		return err
	}

	names := make([]string, 0, len(inv.Hosts))
	for name := range inv.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		host := inv.Hosts[name]
		merged := map[string]any{}

		for _, groupName := range ancestorChainInPrecedenceOrder(inv, host.Groups) {
			group := inv.Groups[groupName]
			if group == nil {
				continue
			}
			for k, v := range group.Vars {
				merged[k] = v
			}
		}

		for k, v := range host.Vars {
			merged[k] = v
		}

		host.Vars = merged
		host.TargetTriple = DetectTargetTriple(host)
	}

	return nil
}

// ancestorChainInPrecedenceOrder returns every ancestor group of the given
// direct memberships, ordered shallowest ("all"-rooted defaults) to
// deepest, with deterministic sibling tie-breaking by name.
func ancestorChainInPrecedenceOrder(inv *Inventory, direct []string) []string {
	depth := map[string]int{}
	var compute func(name string, d int)
	compute = func(name string, d int) {
		if prev, ok := depth[name]; ok && prev >= d {
			return
		}
		depth[name] = d
		group := inv.Groups[name]
		if group == nil {
			return
		}
		for _, parent := range group.Parents {
			compute(parent, d+1)
		}
	}

	for _, g := range direct {
		compute(g, 0)
	}

	names := make([]string, 0, len(depth))
	for name := range depth {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if depth[names[i]] != depth[names[j]] {
			// Deeper in the ancestor walk (larger depth = closer to "all")
			// is lower precedence, so visit it first.
			return depth[names[i]] > depth[names[j]]
		}
		return names[i] < names[j]
	})

	return names
}

// tripleRule is one (arch, platform-family) -> target-triple mapping entry
// from §4.2 step 5.
type tripleRule struct {
	arch   string
	family string
	triple string
}

var tripleTable = []tripleRule{
	{"x86_64", "debian", "x86_64-unknown-linux-gnu"},
	{"aarch64", "debian", "aarch64-unknown-linux-gnu"},
	{"x86_64", "redhat", "x86_64-unknown-linux-gnu"},
	{"aarch64", "redhat", "aarch64-unknown-linux-gnu"},
	{"x86_64", "macos", "x86_64-apple-darwin"},
	{"aarch64", "macos", "aarch64-apple-darwin"},
	{"x86_64", "windows", "x86_64-pc-windows-msvc"},
}

// debianFamily / redhatFamily classify common ansible_distribution values
// into the "-family" buckets the rule table keys on.
var debianFamily = map[string]bool{"debian": true, "ubuntu": true, "raspbian": true}
var redhatFamily = map[string]bool{"rhel": true, "centos": true, "fedora": true, "rocky": true, "almalinux": true}

// DetectTargetTriple derives a host's compiler target triple from its
// merged platform facts (§4.2 step 5). If either the architecture or the
// platform cannot be inferred, it returns Unresolved; the orchestrator later
// decides whether that forces a non-binary path.
func DetectTargetTriple(host *Host) string {
	arch := normalizeArch(host.Platform.Architecture)
	family := classifyFamily(host.Platform)

	if arch == "" || family == "" {
		return Unresolved
	}

	for _, rule := range tripleTable {
		if rule.arch == arch && rule.family == family {
			return rule.triple
		}
	}
	return Unresolved
}

func normalizeArch(raw string) string {
	switch raw {
	case "x86_64", "amd64":
		return "x86_64"
	case "aarch64", "arm64":
		return "aarch64"
	default:
		return ""
	}
}

func classifyFamily(p Platform) string {
	switch p.OSFamily {
	case "windows":
		return "windows"
	case "darwin", "macos":
		return "macos"
	}
	dist := p.Distribution
	if debianFamily[dist] {
		return "debian"
	}
	if redhatFamily[dist] {
		return "redhat"
	}
	return ""
}
