package inventory

import (
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"

	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// jsonGroup mirrors one group object in the Ansible-style dynamic
// inventory JSON form (§6): `{"hosts": [...], "children": [...], "vars": {...}}`.
type jsonGroup struct {
	Hosts    []string       `json:"hosts"`
	Children []string       `json:"children"`
	Vars     map[string]any `json:"vars"`
}

type jsonMeta struct {
	HostVars map[string]map[string]any `json:"hostvars"`
}

// ParseJSON parses the Ansible-style dynamic inventory JSON document: a
// `_meta.hostvars` map plus top-level group objects.
func ParseJSON(data []byte) (*Inventory, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, rerrors.NewInvalidSyntax(0, err)
	}

	inv := &Inventory{Hosts: map[string]*Host{}, Groups: map[string]*Group{}}

	var meta jsonMeta
	if rawMeta, ok := raw["_meta"]; ok {
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return nil, rerrors.NewInvalidSyntax(0, err)
		}
		delete(raw, "_meta")
	}

	groupNames := make([]string, 0, len(raw))
	for name := range raw {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	for _, name := range groupNames {
		var jg jsonGroup
		if err := json.Unmarshal(raw[name], &jg); err != nil {
			return nil, rerrors.NewInvalidSyntax(0, err)
		}
		group := &Group{Name: name, Hosts: jg.Hosts, Children: jg.Children, Vars: jg.Vars}
		inv.Groups[name] = group

		for _, hostName := range jg.Hosts {
			host := inv.getOrCreateHost(hostName)
			host.Groups = append(host.Groups, name)
		}
	}

	for hostName, vars := range meta.HostVars {
		host := inv.getOrCreateHost(hostName)
		mergeHostVars(host, vars)
	}

	linkParents(inv)

	return inv, nil
}

// yamlGroup mirrors one group in the hierarchical YAML inventory form.
type yamlGroup struct {
	Hosts    yaml.Node      `yaml:"hosts"`
	Children []string       `yaml:"children"`
	Vars     map[string]any `yaml:"vars"`
}

// ParseYAML parses the hierarchical YAML inventory form: top-level group
// keys each containing hosts/children/vars, using a permissive
// gopkg.in/yaml.v3 decoding idiom.
func ParseYAML(data []byte) (*Inventory, error) {
	var raw map[string]yamlGroup
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, rerrors.NewParseError("inventory", 0, err)
	}

	inv := &Inventory{Hosts: map[string]*Host{}, Groups: map[string]*Group{}}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		yg := raw[name]
		hostNames, hostVars, err := decodeYAMLHosts(yg.Hosts)
		if err != nil {
			return nil, err
		}

		group := &Group{Name: name, Hosts: hostNames, Children: yg.Children, Vars: yg.Vars}
		inv.Groups[name] = group

		for _, hostName := range hostNames {
			host := inv.getOrCreateHost(hostName)
			host.Groups = append(host.Groups, name)
			if vars, ok := hostVars[hostName]; ok {
				mergeHostVars(host, vars)
			}
		}
	}

	linkParents(inv)

	return inv, nil
}

// decodeYAMLHosts accepts either a flat list of host names
// (`hosts: [h1, h2]`) or a mapping of host name to inline vars
// (`hosts: {h1: {ansible_host: 10.0.0.1}}`), both common in hierarchical
// Ansible-style inventories.
func decodeYAMLHosts(node yaml.Node) ([]string, map[string]map[string]any, error) {
	if node.Kind == 0 {
		return nil, nil, nil
	}

	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, nil, rerrors.NewParseError("inventory.hosts", node.Line, err)
		}
		return names, nil, nil
	case yaml.MappingNode:
		var m map[string]map[string]any
		if err := node.Decode(&m); err != nil {
			return nil, nil, rerrors.NewParseError("inventory.hosts", node.Line, err)
		}
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, m, nil
	default:
		return nil, nil, rerrors.NewParseError("inventory.hosts", node.Line, nil)
	}
}

func (inv *Inventory) getOrCreateHost(name string) *Host {
	if h, ok := inv.Hosts[name]; ok {
		return h
	}
	h := &Host{Name: name, Vars: map[string]any{}}
	inv.Hosts[name] = h
	return h
}

// mergeHostVars applies known ansible-style connection/platform keys onto
// the host's typed fields and keeps every key (known or not) in Vars so
// Resolve's precedence merge can see it too.
func mergeHostVars(host *Host, vars map[string]any) {
	for k, v := range vars {
		host.Vars[k] = v
	}

	if v, ok := stringVar(vars, "ansible_host"); ok {
		host.Address = v
	}
	if v, ok := vars["ansible_port"]; ok {
		if n, ok := toInt(v); ok {
			host.Connection.Port = n
		}
	}
	if v, ok := stringVar(vars, "ansible_connection"); ok {
		host.Connection.Method = v
	}
	if v, ok := stringVar(vars, "ansible_user"); ok {
		host.Connection.Credentials = v
	}
	if v, ok := stringVar(vars, "ansible_architecture"); ok {
		host.Platform.Architecture = v
	}
	if v, ok := stringVar(vars, "ansible_os_family"); ok {
		host.Platform.OSFamily = v
	}
	if v, ok := stringVar(vars, "ansible_distribution"); ok {
		host.Platform.Distribution = v
	}
	if v, ok := stringVar(vars, "ansible_distribution_version"); ok {
		host.Platform.Version = v
	}
}

func stringVar(vars map[string]any, key string) (string, bool) {
	v, ok := vars[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// linkParents computes each group's Parents slice from the Children edges
// declared by other groups, so Resolve can walk "up" the hierarchy without
// storing owning back-pointers (§9: "no cyclic object graphs").
func linkParents(inv *Inventory) {
	for _, g := range inv.Groups {
		for _, childName := range g.Children {
			if child, ok := inv.Groups[childName]; ok {
				child.Parents = append(child.Parents, g.Name)
			}
		}
	}
	for _, g := range inv.Groups {
		sort.Strings(g.Parents)
	}
}
