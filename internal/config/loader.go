package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/gridcastgo/internal/ctxlog"
)

// Loader parses .hcl run descriptions into the validated config model.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a Loader with a fresh HCL parser.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load reads the given path (a single .hcl file, or a directory searched
// recursively), merges all files and decodes them under the environment
// eval context.
func (l *Loader) Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := castFiles(path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("config: no .hcl files found under %s", path)
	}
	logger.Debug("Parsing run descriptions.", "files", len(paths))

	files := make([]*hcl.File, 0, len(paths))
	for _, p := range paths {
		f, diags := l.parser.ParseHCLFile(p)
		if diags.HasErrors() {
			return nil, fmt.Errorf("config: parsing %s: %w", p, diags)
		}
		files = append(files, f)
	}

	var m Model
	if diags := gohcl.DecodeBody(hcl.MergeFiles(files), EnvContext(), &m); diags.HasErrors() {
		return nil, fmt.Errorf("config: decoding run description: %w", diags)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	logger.Debug("Run descriptions loaded.", "runs", len(m.Runs))
	return &m, nil
}

// castFiles resolves a path to the list of .hcl files it names, sorted for
// a stable merge order.
func castFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var out []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("config: scanning %s: %w", path, err)
	}
	sort.Strings(out)
	return out, nil
}
