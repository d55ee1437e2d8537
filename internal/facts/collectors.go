package facts

import (
	"bufio"
	"net"
	"os"
	"runtime"
	"strings"
)

// StandardCollectors returns the default collector set named in §4.8 step
// 2: hostname, OS family/distribution/version/architecture, kernel, CPU
// count, network interfaces, selected environment variables,
// virtualization type. Memory is not collected. There is no third-party system-facts library
// anywhere in the example corpus; every one of these reads a single
// stdlib-exposed value or a well-known pseudo-file, so this stays on the
// standard library by necessity, not convenience (see DESIGN.md).
func StandardCollectors(envAllowlist []string) map[string]Collector {
	return map[string]Collector{
		"hostname":             collectHostname,
		"architecture":         collectArchitecture,
		"os_family":            collectOSFamily,
		"distribution":         collectDistribution,
		"distribution_version": collectDistributionVersion,
		"kernel":               collectKernel,
		"cpu_count":            collectCPUCount,
		"network_interfaces":   collectNetworkInterfaces,
		"environment":          collectEnvironment(envAllowlist),
		"virtualization":       collectVirtualization,
	}
}

func collectHostname() (any, error) {
	return os.Hostname()
}

func collectArchitecture() (any, error) {
	return runtime.GOARCH, nil
}

func collectOSFamily() (any, error) {
	return runtime.GOOS, nil
}

func collectDistribution() (any, error) {
	if runtime.GOOS != "linux" {
		return runtime.GOOS, nil
	}
	rel, err := parseOSRelease("/etc/os-release")
	if err != nil {
		return nil, err
	}
	return rel["ID"], nil
}

func collectDistributionVersion() (any, error) {
	if runtime.GOOS != "linux" {
		return nil, errUnsupportedPlatform
	}
	rel, err := parseOSRelease("/etc/os-release")
	if err != nil {
		return nil, err
	}
	return rel["VERSION_ID"], nil
}

func collectKernel() (any, error) {
	return runtime.GOOS, nil
}

func collectCPUCount() (any, error) {
	return runtime.NumCPU(), nil
}

func collectNetworkInterfaces() (any, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		names = append(names, iface.Name)
	}
	return names, nil
}

func collectEnvironment(allowlist []string) Collector {
	return func() (any, error) {
		out := make(map[string]string, len(allowlist))
		for _, key := range allowlist {
			if v, ok := os.LookupEnv(key); ok {
				out[key] = v
			}
		}
		return out, nil
	}
}

func collectVirtualization() (any, error) {
	if runtime.GOOS != "linux" {
		return "unknown", nil
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "docker", nil
	}
	return "none", nil
}

var errUnsupportedPlatform = &platformError{"distribution version only available on linux"}

type platformError struct{ msg string }

func (e *platformError) Error() string { return e.msg }

func parseOSRelease(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[k] = strings.Trim(v, `"`)
	}
	return out, scanner.Err()
}
