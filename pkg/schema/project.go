package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the project manifest file name.
const ManifestName = "testbook.yaml"

// DefaultMaxIncludeDepth bounds nested include expansion when the manifest
// does not set one.
const DefaultMaxIncludeDepth = 32

// Project represents a testbook.yaml manifest: identity, path conventions,
// required packages and resolution defaults.
type Project struct {
	Name     string            `yaml:"name"               json:"name"`
	Paths    ProjectPaths      `yaml:"paths,omitempty"    json:"paths,omitempty"`
	Require  map[string]string `yaml:"require,omitempty"  json:"require,omitempty"`
	Defaults ProjectDefaults   `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Redact   []RedactionRule   `yaml:"redact,omitempty"   json:"redact,omitempty"`

	// Root is the absolute path to the directory containing testbook.yaml.
	// Set after loading/discovery, not from YAML.
	Root string `yaml:"-" json:"-"`

	// packages caches resolved required packages (lazily populated).
	packages map[string]*Project
}

// ProjectPaths overrides convention directories.
// Defaults: tests → "tests", suites → "suites", libraries → "steps",
// environments → "environments".
type ProjectPaths struct {
	Tests        string `yaml:"tests,omitempty"        json:"tests,omitempty"`
	Suites       string `yaml:"suites,omitempty"       json:"suites,omitempty"`
	Libraries    string `yaml:"libraries,omitempty"    json:"libraries,omitempty"`
	Environments string `yaml:"environments,omitempty" json:"environments,omitempty"`
}

// ProjectDefaults are used when the corresponding CLI flag is not given.
type ProjectDefaults struct {
	Environment     string `yaml:"environment,omitempty"       json:"environment,omitempty"`
	Tags            string `yaml:"tags,omitempty"              json:"tags,omitempty"`
	MaxIncludeDepth int    `yaml:"max_include_depth,omitempty" json:"max_include_depth,omitempty"`
}

// RedactionRule masks environment values whose variable name matches Pattern.
type RedactionRule struct {
	Pattern string `yaml:"pattern"           json:"pattern"`
	Replace string `yaml:"replace,omitempty" json:"replace,omitempty"`
}

// TestsDir returns the effective test case directory (default: "tests").
func (p *Project) TestsDir() string {
	if p != nil && p.Paths.Tests != "" {
		return p.Paths.Tests
	}
	return "tests"
}

// SuitesDir returns the effective suite directory (default: "suites").
func (p *Project) SuitesDir() string {
	if p != nil && p.Paths.Suites != "" {
		return p.Paths.Suites
	}
	return "suites"
}

// LibrariesDir returns the effective step library directory (default: "steps").
func (p *Project) LibrariesDir() string {
	if p != nil && p.Paths.Libraries != "" {
		return p.Paths.Libraries
	}
	return "steps"
}

// EnvironmentsDir returns the effective profile directory (default: "environments").
func (p *Project) EnvironmentsDir() string {
	if p != nil && p.Paths.Environments != "" {
		return p.Paths.Environments
	}
	return "environments"
}

// MaxIncludeDepth returns the configured include depth bound.
func (p *Project) MaxIncludeDepth() int {
	if p != nil && p.Defaults.MaxIncludeDepth > 0 {
		return p.Defaults.MaxIncludeDepth
	}
	return DefaultMaxIncludeDepth
}

// Abs joins a project-relative path onto Root.
func (p *Project) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}

// ResolveTestCaseRef resolves a suite's test case reference to a file path.
//
// Resolution order:
//  1. absolute path as given
//  2. <Root>/<ref>
//  3. <Root>/<TestsDir>/<ref>
//
// Each candidate is also tried with ".yaml" and ".yml" appended when ref has
// no YAML extension. The error wraps os.ErrNotExist when nothing matches.
func (p *Project) ResolveTestCaseRef(ref string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("no project context")
	}
	ref = strings.TrimSpace(ref)

	var bases []string
	if filepath.IsAbs(ref) {
		bases = []string{ref}
	} else {
		bases = []string{
			filepath.Join(p.Root, ref),
			filepath.Join(p.Root, p.TestsDir(), ref),
		}
	}

	for _, base := range bases {
		candidates := []string{base}
		if !IsYAMLFile(base) {
			candidates = append(candidates, base+".yaml", base+".yml")
		}
		for _, c := range candidates {
			if info, err := os.Stat(c); err == nil && !info.IsDir() {
				return c, nil
			}
		}
	}
	return "", fmt.Errorf("test case %q: %w", ref, os.ErrNotExist)
}

// RequiredPackages resolves every entry of require, in alias order.
func (p *Project) RequiredPackages() ([]string, map[string]*Project, error) {
	aliases := make([]string, 0, len(p.Require))
	for alias := range p.Require {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	out := make(map[string]*Project, len(aliases))
	for _, alias := range aliases {
		pkg, err := p.resolvePackage(alias)
		if err != nil {
			return nil, nil, err
		}
		out[alias] = pkg
	}
	return aliases, out, nil
}

// resolvePackage loads a required package by alias, caching the result.
func (p *Project) resolvePackage(name string) (*Project, error) {
	if pkg, ok := p.packages[name]; ok {
		return pkg, nil
	}

	reqPath, ok := p.Require[name]
	if !ok {
		return nil, fmt.Errorf("unknown package %q (not declared in require)", name)
	}
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("package alias %q must not contain '/'", name)
	}

	// Resolve relative to this project's root
	absPath := reqPath
	if !filepath.IsAbs(reqPath) {
		absPath = filepath.Join(p.Root, reqPath)
	}
	absPath = filepath.Clean(absPath)

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("package %q: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("package %q: %s is not a directory", name, absPath)
	}

	// Try loading testbook.yaml from the target
	pkg, err := LoadProjectFile(filepath.Join(absPath, ManifestName))
	if err != nil {
		// Fallback: treat the path as a bare directory (no testbook.yaml)
		pkg = &Project{Name: name, Root: absPath}
	}

	if p.packages == nil {
		p.packages = make(map[string]*Project)
	}
	p.packages[name] = pkg
	return pkg, nil
}

// LoadProjectFile reads and parses a testbook.yaml manifest.
func LoadProjectFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project manifest: %w", err)
	}

	var proj Project
	if err := yaml.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project manifest: %w", err)
	}

	if proj.Name == "" {
		return nil, fmt.Errorf("project manifest %s: name is required", path)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	proj.Root = abs
	return &proj, nil
}

// DiscoverProject walks up from startPath to find the nearest testbook.yaml.
// Returns nil (no error) if no manifest is found; the caller should use
// FallbackProject in that case.
func DiscoverProject(startPath string) (*Project, error) {
	abs, err := filepath.Abs(startPath)
	if err != nil {
		return nil, err
	}

	// If startPath is a file, start from its directory
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return LoadProjectFile(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// FallbackProject creates a minimal project rooted at the given directory
// with default conventions. Used when no testbook.yaml is found.
func FallbackProject(dir string) *Project {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &Project{
		Name: filepath.Base(abs),
		Root: abs,
	}
}
