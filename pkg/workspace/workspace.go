// Package workspace is the filesystem side of testbook: it finds the project
// manifest, loads environment profiles and the step library table, locates
// test case files for suites and enumerates the documents to resolve.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ormasoftchile/testbook/pkg/profile"
	"github.com/ormasoftchile/testbook/pkg/resolve"
	"github.com/ormasoftchile/testbook/pkg/schema"
)

// ProfileExt is the environment profile file extension.
const ProfileExt = ".env"

// Workspace is a project rooted at a testbook.yaml (or a bare directory).
type Workspace struct {
	Project *schema.Project
	Logger  *zap.Logger
}

// Open discovers the project containing dir. Without a manifest the
// directory itself becomes the root with default conventions.
func Open(dir string, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	proj, err := schema.DiscoverProject(dir)
	if err != nil {
		return nil, fmt.Errorf("discover project: %w", err)
	}
	if proj == nil {
		proj = schema.FallbackProject(dir)
		logger.Debug("no project manifest found, using defaults", zap.String("root", proj.Root))
	} else {
		logger.Debug("project manifest loaded", zap.String("name", proj.Name), zap.String("root", proj.Root))
	}
	return &Workspace{Project: proj, Logger: logger}, nil
}

// Root returns the absolute project root.
func (w *Workspace) Root() string { return w.Project.Root }

// Environments lists the profile names under the environments directory.
func (w *Workspace) Environments() ([]string, error) {
	dir := w.Project.Abs(w.Project.EnvironmentsDir())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read environments directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ProfileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ProfileExt))
	}
	sort.Strings(names)
	return names, nil
}

// EnvironmentName picks the explicit name, else the manifest default.
func (w *Workspace) EnvironmentName(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return w.Project.Defaults.Environment
}

// LoadProfile reads <environments>/<name>.env. An empty name yields an
// empty profile.
func (w *Workspace) LoadProfile(name string) (profile.Profile, error) {
	if name == "" {
		return profile.Profile{}, nil
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid environment name %q", name)
	}
	path := filepath.Join(w.Project.Abs(w.Project.EnvironmentsDir()), name+ProfileExt)
	p, err := profile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("environment %q: %w", name, err)
	}
	return p, nil
}

// Locate implements resolve.Loader.
func (w *Workspace) Locate(ref string) (string, error) {
	return w.Project.ResolveTestCaseRef(ref)
}

// ReadFile implements resolve.Loader.
func (w *Workspace) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TestCaseFiles returns every YAML file under the tests directory.
func (w *Workspace) TestCaseFiles() ([]string, error) {
	return yamlFiles(w.Project.Abs(w.Project.TestsDir()))
}

// SuiteFiles returns every YAML file under the suites directory.
func (w *Workspace) SuiteFiles() ([]string, error) {
	return yamlFiles(w.Project.Abs(w.Project.SuitesDir()))
}

// Kind decides what a file holds: its location under the suites or
// libraries directory first, its top-level keys otherwise.
func (w *Workspace) Kind(path string, data []byte) schema.DocumentKind {
	abs, err := filepath.Abs(path)
	if err == nil {
		if within(abs, w.Project.Abs(w.Project.SuitesDir())) {
			return schema.KindSuite
		}
		if within(abs, w.Project.Abs(w.Project.LibrariesDir())) {
			return schema.KindLibrary
		}
		if within(abs, w.Project.Abs(w.Project.TestsDir())) {
			return schema.KindTestCase
		}
	}
	return schema.DetectKind(data)
}

// Engine builds a resolution engine for one environment. maxDepth overrides
// the manifest's include depth bound when positive.
func (w *Workspace) Engine(environment string, maxDepth int) (*resolve.Engine, error) {
	env, err := w.LoadProfile(environment)
	if err != nil {
		return nil, err
	}
	libs, err := w.LoadLibraries()
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = w.Project.MaxIncludeDepth()
	}
	return resolve.New(resolve.Config{
		Env:             env,
		Libraries:       libs,
		Loader:          w,
		Logger:          w.Logger,
		MaxIncludeDepth: maxDepth,
	}), nil
}

func yamlFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() && schema.IsYAMLFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
