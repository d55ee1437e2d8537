package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"

	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

func TestParseJSON_DynamicInventoryWithHostVars(t *testing.T) {
	data := []byte(`{
		"_meta": {"hostvars": {"web1": {"ansible_host": "10.0.0.1", "ansible_architecture": "x86_64", "ansible_os_family": "debian", "ansible_distribution": "ubuntu"}}},
		"webservers": {"hosts": ["web1"], "vars": {"port": 8080}},
		"all": {"children": ["webservers"], "vars": {"env": "prod"}}
	}`)

	inv, err := ParseJSON(data)
	require.NoError(t, err)
	require.Contains(t, inv.Hosts, "web1")
	require.Equal(t, "10.0.0.1", inv.Hosts["web1"].Address)
	require.Equal(t, "x86_64", inv.Hosts["web1"].Platform.Architecture)
	require.ElementsMatch(t, []string{"all"}, inv.Groups["webservers"].Parents)
}

func TestParseYAML_HierarchicalGroupsWithInlineHostVars(t *testing.T) {
	data := []byte(`
all:
  children: [webservers]
  vars:
    env: prod
webservers:
  hosts:
    web1:
      ansible_host: 10.0.0.1
      ansible_architecture: aarch64
      ansible_os_family: darwin
`)

	inv, err := ParseYAML(data)
	require.NoError(t, err)
	require.Contains(t, inv.Hosts, "web1")
	require.Equal(t, "10.0.0.1", inv.Hosts["web1"].Address)
	require.Equal(t, "aarch64", inv.Hosts["web1"].Platform.Architecture)
}

func TestCheckCycles_DetectsCircularGroupDependency(t *testing.T) {
	inv := &Inventory{
		Hosts: map[string]*Host{},
		Groups: map[string]*Group{
			"A": {Name: "A", Children: []string{"B"}},
			"B": {Name: "B", Children: []string{"C"}},
			"C": {Name: "C", Children: []string{"A"}},
		},
	}

	err := CheckCycles(inv)
	require.Error(t, err)

	var cyc *rerrors.CircularGroupDependency
	require.ErrorAs(t, err, &cyc)
	require.Equal(t, []string{"A", "B", "C", "A"}, cyc.Path)
}

func TestCheckCycles_AcyclicHierarchyPasses(t *testing.T) {
	inv := &Inventory{
		Hosts: map[string]*Host{},
		Groups: map[string]*Group{
			"all":        {Name: "all", Children: []string{"webservers"}},
			"webservers": {Name: "webservers", Children: []string{"canaries"}},
			"canaries":   {Name: "canaries"},
		},
	}
	require.NoError(t, CheckCycles(inv))
}

func TestResolve_PrecedenceOrderDeeperGroupOverridesShallower(t *testing.T) {
	inv := &Inventory{
		Hosts: map[string]*Host{
			"web1": {Name: "web1", Groups: []string{"webservers"}, Vars: map[string]any{}},
		},
		Groups: map[string]*Group{
			"all":        {Name: "all", Children: []string{"webservers"}, Vars: map[string]any{"env": "prod", "timeout": 30}},
			"webservers": {Name: "webservers", Parents: []string{"all"}, Vars: map[string]any{"timeout": 60}},
		},
	}

	require.NoError(t, Resolve(inv))

	web1 := inv.Hosts["web1"]
	require.Equal(t, "prod", web1.Vars["env"])
	require.Equal(t, 60, web1.Vars["timeout"])
}

func TestResolve_DirectHostVarsOverrideGroupVars(t *testing.T) {
	inv := &Inventory{
		Hosts: map[string]*Host{
			"web1": {Name: "web1", Groups: []string{"webservers"}, Vars: map[string]any{"env": "canary"}},
		},
		Groups: map[string]*Group{
			"webservers": {Name: "webservers", Vars: map[string]any{"env": "prod"}},
		},
	}

	require.NoError(t, Resolve(inv))
	require.Equal(t, "canary", inv.Hosts["web1"].Vars["env"])
}

func TestResolve_SiblingTieBrokenLexicographically(t *testing.T) {
	inv := &Inventory{
		Hosts: map[string]*Host{
			"web1": {Name: "web1", Groups: []string{"zgroup", "agroup"}, Vars: map[string]any{}},
		},
		Groups: map[string]*Group{
			"zgroup": {Name: "zgroup", Vars: map[string]any{"owner": "z"}},
			"agroup": {Name: "agroup", Vars: map[string]any{"owner": "a"}},
		},
	}

	require.NoError(t, Resolve(inv))
	// Both groups are direct (depth 0) memberships; lexicographically
	// later name ("zgroup") applies last and wins.
	require.Equal(t, "z", inv.Hosts["web1"].Vars["owner"])
}

func TestResolve_IsDeterministicAcrossRuns(t *testing.T) {
	build := func() *Inventory {
		return &Inventory{
			Hosts: map[string]*Host{
				"web1": {Name: "web1", Groups: []string{"webservers"}, Vars: map[string]any{}},
			},
			Groups: map[string]*Group{
				"all":        {Name: "all", Children: []string{"webservers"}, Vars: map[string]any{"env": "prod"}},
				"webservers": {Name: "webservers", Parents: []string{"all"}, Vars: map[string]any{"role": "web"}},
			},
		}
	}

	inv1, inv2 := build(), build()
	require.NoError(t, Resolve(inv1))
	require.NoError(t, Resolve(inv2))
	require.Equal(t, inv1.Hosts["web1"].Vars, inv2.Hosts["web1"].Vars)
}

func TestDetectTargetTriple_MappingTable(t *testing.T) {
	cases := []struct {
		name   string
		plat   Platform
		triple string
	}{
		{"linux-debian-amd64", Platform{Architecture: "x86_64", OSFamily: "linux", Distribution: "debian"}, "x86_64-unknown-linux-gnu"},
		{"linux-debian-arm64", Platform{Architecture: "aarch64", OSFamily: "linux", Distribution: "ubuntu"}, "aarch64-unknown-linux-gnu"},
		{"linux-redhat-amd64", Platform{Architecture: "x86_64", OSFamily: "linux", Distribution: "rhel"}, "x86_64-unknown-linux-gnu"},
		{"macos-amd64", Platform{Architecture: "x86_64", OSFamily: "darwin"}, "x86_64-apple-darwin"},
		{"macos-arm64", Platform{Architecture: "aarch64", OSFamily: "darwin"}, "aarch64-apple-darwin"},
		{"windows-amd64", Platform{Architecture: "x86_64", OSFamily: "windows"}, "x86_64-pc-windows-msvc"},
		{"unknown-distribution", Platform{Architecture: "x86_64", OSFamily: "linux", Distribution: "gentoo"}, Unresolved},
		{"unknown-architecture", Platform{Architecture: "riscv64", OSFamily: "linux", Distribution: "debian"}, Unresolved},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host := &Host{Platform: tc.plat}
			require.Equal(t, tc.triple, DetectTargetTriple(host))
		})
	}
}
