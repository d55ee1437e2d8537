package dispatch

import (
	"context"
	"os"
	"path/filepath"

	rt "github.com/rustle-deploy/rustle-deploy/internal/runtime"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

// fileModule implements the file module (§4.9): required canonical
// `path` (alias `dest` when `path` absent); `state=link` requires `src`.
// States use an Lstat + Readlink-compare check generalized to also cover
// plain file/directory/absent states.
type fileModule struct{}

// NewFileModule returns the file module.
func NewFileModule() Module { return &fileModule{} }

func (m *fileModule) Name() string                 { return "file" }
func (m *fileModule) SupportedPlatforms() []string { return nil }

func (m *fileModule) Normalize(args map[string]any) (map[string]any, error) {
	out := cloneArgs(args)
	alias(out, "dest", "path")
	if _, ok := out["state"]; !ok {
		out["state"] = "file"
	}
	return out, nil
}

func (m *fileModule) Validate(args map[string]any) error {
	if _, err := requireString(args, "path", m.Name()); err != nil {
		return err
	}
	if err := oneOf(args, "state", []string{"file", "directory", "link", "absent", "touch"}); err != nil {
		return err
	}
	if optionalString(args, "state", "file") == "link" {
		if _, err := requireString(args, "src", m.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (m *fileModule) Check(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	path, _ := requireString(args, "path", m.Name())
	state := optionalString(args, "state", "file")

	switch state {
	case "absent":
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			return rt.ModuleResult{Changed: false}, nil
		}
		return rt.ModuleResult{Changed: true}, nil
	case "link":
		src := optionalString(args, "src", "")
		info, err := os.Lstat(path)
		if err != nil {
			return rt.ModuleResult{Changed: true}, nil
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return rt.ModuleResult{Changed: true}, nil
		}
		target, err := os.Readlink(path)
		if err != nil {
			return rt.ModuleResult{Changed: true}, nil
		}
		return rt.ModuleResult{Changed: target != src}, nil
	default:
		_, err := os.Stat(path)
		return rt.ModuleResult{Changed: os.IsNotExist(err)}, nil
	}
}

func (m *fileModule) Execute(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	path, err := requireString(args, "path", m.Name())
	if err != nil {
		return rt.ModuleResult{}, err
	}
	state := optionalString(args, "state", "file")

	switch state {
	case "absent":
		if err := os.RemoveAll(path); err != nil {
			return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
		}
		return rt.ModuleResult{Changed: true, Message: "removed"}, nil

	case "directory":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
		}
		return rt.ModuleResult{Changed: true, Message: "directory ensured"}, nil

	case "touch":
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
		}
		f.Close()
		return rt.ModuleResult{Changed: true, Message: "touched"}, nil

	case "link":
		src, err := requireString(args, "src", m.Name())
		if err != nil {
			return rt.ModuleResult{}, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
		}
		os.Remove(path)
		if err := os.Symlink(src, path); err != nil {
			return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
		}
		return rt.ModuleResult{Changed: true, Message: "link created"}, nil

	case "file":
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return rt.ModuleResult{Failed: true, Message: "file does not exist and state=file does not create content"}, nil
		}
		return rt.ModuleResult{Changed: false}, nil

	default:
		return rt.ModuleResult{}, rerrors.NewValidationError("state", "unsupported file state: "+state, nil)
	}
}
