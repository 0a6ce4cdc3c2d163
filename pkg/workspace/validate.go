package workspace

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ormasoftchile/testbook/pkg/schema"
)

// Validate runs the validation phases on one file. kindName overrides kind
// detection when set. Domain rules see the project's library names and the
// union of all environment profiles.
func (w *Workspace) Validate(path, kindName string) (schema.DocumentKind, []*schema.ValidationError) {
	data, err := w.ReadFile(path)
	if err != nil {
		return schema.KindTestCase, []*schema.ValidationError{{
			Phase: "structural", Path: path, Message: fmt.Sprintf("read file: %v", err), Severity: "error",
		}}
	}

	kind := w.Kind(path, data)
	if kindName != "" {
		if kind, err = schema.ParseDocumentKind(kindName); err != nil {
			return kind, []*schema.ValidationError{{
				Phase: "structural", Path: path, Message: err.Error(), Severity: "error",
			}}
		}
	}
	return kind, schema.Validate(data, kind, w.DomainContext())
}

// DomainContext collects what domain validation rules check against.
// Problems loading libraries or profiles are logged, and the affected
// checks are skipped.
func (w *Workspace) DomainContext() schema.DomainContext {
	var dc schema.DomainContext

	if libs, err := w.LoadLibraries(); err != nil {
		w.Logger.Warn("libraries unavailable for validation", zap.Error(err))
	} else {
		dc.Libraries = make(map[string]bool, len(libs))
		for name := range libs {
			dc.Libraries[name] = true
		}
	}

	names, err := w.Environments()
	if err != nil {
		w.Logger.Warn("environments unavailable for validation", zap.Error(err))
		return dc
	}
	dc.Env = map[string]string{}
	for _, name := range names {
		p, err := w.LoadProfile(name)
		if err != nil {
			w.Logger.Warn("environment unavailable for validation", zap.String("environment", name), zap.Error(err))
			continue
		}
		for k, v := range p {
			dc.Env[k] = v
		}
	}
	return dc
}
