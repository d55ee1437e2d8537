// Package fingerprint computes the content-addressed key a binary
// deployment group is cached under (§3 "payload fingerprint"). The
// function is pure: identical inputs always hash to the same key, and
// secret values never enter the digest, so the compilation cache never
// carries secret material at rest (SUPPLEMENTED FEATURES).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/rustle-deploy/rustle-deploy/internal/plan"
)

// Input is everything the fingerprint is a pure function of: task
// ids+args, the module list, embedded static-file contents, the target
// triple, and compiler flags. Secret values are deliberately absent.
type Input struct {
	Tasks           []plan.Task
	Modules         []string
	StaticFiles     []plan.StaticFile
	StaticFileBytes map[string][]byte // SourcePath -> contents, supplied by the caller
	TargetTriple    string
	CompilerFlags   []string
}

// Compute derives the fingerprint as a hex-encoded SHA-256 digest over a
// deterministic, sorted serialization of Input. Map/slice ordering is
// never trusted; everything is sorted before hashing so concurrent
// callers computing the same logical group see byte-identical keys.
func Compute(in Input) string {
	h := sha256.New()

	tasks := append([]plan.Task(nil), in.Tasks...)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	for _, t := range tasks {
		writeString(h, "task:"+t.ID+":"+t.Module)
		writeSortedArgs(h, t.Args)
	}

	modules := append([]string(nil), in.Modules...)
	sort.Strings(modules)
	for _, m := range modules {
		writeString(h, "module:"+m)
	}

	files := append([]plan.StaticFile(nil), in.StaticFiles...)
	sort.Slice(files, func(i, j int) bool { return files[i].TargetPath < files[j].TargetPath })
	for _, f := range files {
		writeString(h, "file:"+f.TargetPath)
		if contents, ok := in.StaticFileBytes[f.SourcePath]; ok {
			h.Write(contents)
		}
	}

	writeString(h, "triple:"+in.TargetTriple)

	flags := append([]string(nil), in.CompilerFlags...)
	sort.Strings(flags)
	for _, f := range flags {
		writeString(h, "flag:"+f)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeString(h interface{ Write([]byte) (int, error) }, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0})
}

func writeSortedArgs(h interface{ Write([]byte) (int, error) }, args map[string]any) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeString(h, "arg:"+k+"="+toString(args[k]))
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return "<nil>"
	default:
		return fmt.Sprint(x)
	}
}
