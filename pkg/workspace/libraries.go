package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ormasoftchile/testbook/pkg/schema"
)

// LoadLibraries builds the library table: every YAML file under the
// libraries directory, then the libraries of each required package under
// "<alias>/<name>". Names default to the path relative to the libraries
// directory without extension. Duplicate names are an error.
func (w *Workspace) LoadLibraries() (map[string]*schema.StepLibrary, error) {
	table := map[string]*schema.StepLibrary{}
	if err := loadLibraryDir(w.Project, "", table); err != nil {
		return nil, err
	}

	aliases, pkgs, err := w.Project.RequiredPackages()
	if err != nil {
		return nil, fmt.Errorf("resolve required packages: %w", err)
	}
	for _, alias := range aliases {
		if err := loadLibraryDir(pkgs[alias], alias+"/", table); err != nil {
			return nil, fmt.Errorf("package %q: %w", alias, err)
		}
	}

	w.Logger.Debug("step libraries loaded", zap.Int("count", len(table)))
	return table, nil
}

func loadLibraryDir(proj *schema.Project, prefix string, table map[string]*schema.StepLibrary) error {
	dir := proj.Abs(proj.LibrariesDir())
	files, err := yamlFiles(dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		lib, err := schema.LoadLibraryFile(path)
		if err != nil {
			return err
		}
		if lib.Name == "" {
			lib.Name = libraryName(dir, path)
		}
		lib.Name = prefix + lib.Name
		if prev, ok := table[lib.Name]; ok {
			return fmt.Errorf("duplicate step library %q: %s and %s", lib.Name, prev.Path, path)
		}
		table[lib.Name] = lib
	}
	return nil
}

// libraryName is path relative to dir, slash-separated, without extension.
func libraryName(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return schema.Stem(path)
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}
