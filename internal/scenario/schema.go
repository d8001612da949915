package scenario

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// A cue.Context is not safe for concurrent use.
var (
	schemaMu   sync.Mutex
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

// scenarioSchema compiles the embedded schema once.
func scenarioSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile scenario schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Scenario"))
	})
	return schemaCtx, schemaDef, schemaErr
}

// CheckSchema validates a YAML scenario document against the embedded CUE
// schema and returns every violation found. filename labels positions.
func CheckSchema(filename string, data []byte) []ValidationError {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := scenarioSchema()
	if err != nil {
		return []ValidationError{{Field: "schema", Message: err.Error(), Code: ErrSchema}}
	}

	f, err := cueyaml.Extract(filename, data)
	if err != nil {
		return cueErrors(filename, err)
	}
	doc := ctx.BuildFile(f)
	if err := doc.Err(); err != nil {
		return cueErrors(filename, err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return cueErrors(filename, err)
	}
	return nil
}

// ValidateSchema is CheckSchema reporting only the first violation.
func ValidateSchema(filename string, data []byte) error {
	if errs := CheckSchema(filename, data); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// cueErrors flattens a CUE error list, keeping the line of the position
// that falls inside the scenario document.
func cueErrors(filename string, err error) []ValidationError {
	list := errors.Errors(err)
	if len(list) == 0 {
		return []ValidationError{{Field: "schema", Message: err.Error(), Code: ErrSchema}}
	}

	out := make([]ValidationError, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		ve := ValidationError{
			Field:   pathString(e.Path()),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchema,
		}
		if pos, ok := documentPosition(filename, errors.Positions(e)); ok {
			ve.Line = pos.Line()
		}
		out = append(out, ve)
	}
	return out
}

func documentPosition(filename string, positions []token.Pos) (token.Pos, bool) {
	for _, p := range positions {
		if p.IsValid() && p.Filename() == filename {
			return p, true
		}
	}
	return token.NoPos, false
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "document"
	}
	return strings.Join(path, ".")
}
