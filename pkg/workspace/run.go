package workspace

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ormasoftchile/testbook/pkg/redact"
	"github.com/ormasoftchile/testbook/pkg/report"
	"github.com/ormasoftchile/testbook/pkg/resolve"
	"github.com/ormasoftchile/testbook/pkg/schema"
	"github.com/ormasoftchile/testbook/pkg/tags"
)

// Request selects what a resolve run covers.
type Request struct {
	// Environment names the profile; empty falls back to the manifest default.
	Environment string
	Filter      tags.Filter
	// Files to resolve. Empty means every test case and every suite.
	Files    []string
	MaxDepth int
	// ShowSecrets disables redaction of environment values in the document.
	ShowSecrets bool
}

// FilterText returns the explicit filter when set, else the manifest default.
func (w *Workspace) FilterText(explicit string, set bool) string {
	if set {
		return explicit
	}
	return w.Project.Defaults.Tags
}

// Resolve runs one resolution over the requested files and collects the
// results into a report document. Per-file problems, unreadable files
// included, land in the document; the error return is for setup failures.
func (w *Workspace) Resolve(req Request) (*report.Document, error) {
	envName := w.EnvironmentName(req.Environment)
	engine, err := w.Engine(envName, req.MaxDepth)
	if err != nil {
		return nil, err
	}

	envVars := engine.Env()
	if !req.ShowSecrets {
		rules, err := redact.Compile(w.Project.Redact)
		if err != nil {
			return nil, err
		}
		envVars = redact.Env(envVars, rules)
	}
	doc := report.New(envName, req.Filter, envVars, engine.LibraryNames())

	files := req.Files
	if len(files) == 0 {
		if files, err = w.allDocuments(); err != nil {
			return nil, err
		}
	}

	for _, path := range files {
		name := schema.Stem(path)
		data, err := w.ReadFile(path)
		if err != nil {
			w.Logger.Warn("cannot read file", zap.String("path", path), zap.Error(err))
			doc.AddTestCase(resolve.FailedTestCase(name, path, fmt.Errorf("read %s: %w", path, err)))
			continue
		}
		switch kind := w.Kind(path, data); kind {
		case schema.KindSuite:
			doc.AddSuite(engine.ResolveSuite(name, path, data, req.Filter))
		case schema.KindTestCase:
			doc.AddTestCase(engine.ResolveTestCase(name, path, data, req.Filter))
		default:
			w.Logger.Warn("skipping file that is not a test case or suite",
				zap.String("path", path), zap.Stringer("kind", kind))
		}
	}
	return doc, nil
}

func (w *Workspace) allDocuments() ([]string, error) {
	cases, err := w.TestCaseFiles()
	if err != nil {
		return nil, err
	}
	suites, err := w.SuiteFiles()
	if err != nil {
		return nil, err
	}
	return append(cases, suites...), nil
}
