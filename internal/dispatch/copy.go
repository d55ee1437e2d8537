package dispatch

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	rt "github.com/rustle-deploy/rustle-deploy/internal/runtime"
	"github.com/rustle-deploy/rustle-deploy/pkg/diff"
)

// copyModule implements the copy module (§4.9): required `src`, `dest`.
// Check compares single files with pkg/diff.GenerateUnifiedDiff; apply
// walks the source tree, generalized from a teacher step plugin into a
// dispatch Module (recursive copy when src is a directory, overwrite
// always allowed since there is no separate per-task overwrite flag in
// the module args table).
type copyModule struct{}

// NewCopyModule returns the copy module.
func NewCopyModule() Module { return &copyModule{} }

func (m *copyModule) Name() string                 { return "copy" }
func (m *copyModule) SupportedPlatforms() []string { return nil }

func (m *copyModule) Normalize(args map[string]any) (map[string]any, error) {
	return cloneArgs(args), nil
}

func (m *copyModule) Validate(args map[string]any) error {
	if _, err := requireString(args, "src", m.Name()); err != nil {
		return err
	}
	_, err := requireString(args, "dest", m.Name())
	return err
}

func (m *copyModule) Check(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	src, _ := requireString(args, "src", m.Name())
	dest, _ := requireString(args, "dest", m.Name())

	srcInfo, err := os.Stat(src)
	if err != nil {
		return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
	}
	if srcInfo.IsDir() {
		return rt.ModuleResult{Changed: true, Message: "directory copy state unknown without a full walk"}, nil
	}

	dstBytes, err := os.ReadFile(dest)
	if err != nil {
		return rt.ModuleResult{Changed: true, Message: "destination absent or unreadable"}, nil
	}
	srcBytes, err := os.ReadFile(src)
	if err != nil {
		return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
	}

	unified := diff.GenerateUnifiedDiff(dstBytes, srcBytes, dest, src)
	return rt.ModuleResult{Changed: unified != "", Diff: unified}, nil
}

func (m *copyModule) Execute(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	src, err := requireString(args, "src", m.Name())
	if err != nil {
		return rt.ModuleResult{}, err
	}
	dest, err := requireString(args, "dest", m.Name())
	if err != nil {
		return rt.ModuleResult{}, err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
	}

	if srcInfo.IsDir() {
		if err := copyDirectory(src, dest); err != nil {
			return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
		}
		return rt.ModuleResult{Changed: true, Message: "directory copied"}, nil
	}

	if err := copyRegularFile(src, dest, srcInfo.Mode()); err != nil {
		return rt.ModuleResult{Failed: true, Message: err.Error()}, nil
	}
	return rt.ModuleResult{Changed: true, Message: "file copied"}, nil
}

func copyRegularFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

func copyDirectory(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyRegularFile(path, target, info.Mode())
	})
}
