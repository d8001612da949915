package cli

import (
	"os"
	"path/filepath"

	"github.com/roach88/brokersim/internal/scenario"
	"github.com/roach88/brokersim/internal/store"
)

// openJournal opens the event journal at path. Reading commands pass
// create=false so that a mistyped path is reported instead of creating an
// empty journal.
func openJournal(path string, create bool) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no journal configured: pass --journal or set BROKERSIM_JOURNAL")
	}
	if create {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create journal directory", err)
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "journal not found", err)
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

// resolveScenario returns the scenario to run: the file when one is given,
// otherwise the named built-in demo. The returned catalog holds only that
// scenario and backs the runner's republisher. source records where the
// scenario came from.
func resolveScenario(demo, file string) (s *scenario.Scenario, c *scenario.Catalog, source string, err error) {
	if file != "" {
		s, err = scenario.Load(file)
		if err != nil {
			return nil, nil, "", WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		source = file
	} else {
		if demo == "" {
			demo = scenario.DefaultDemo
		}
		demos, err := scenario.DefaultCatalog()
		if err != nil {
			return nil, nil, "", WrapExitError(ExitCommandError, "failed to load demos", err)
		}
		var ok bool
		if s, ok = demos.Get(demo); !ok {
			return nil, nil, "", NewExitError(ExitCommandError, "unknown demo "+demo+" (see brokersim demos)")
		}
		source = "demo"
	}

	c = scenario.NewCatalog()
	if err := c.Add(s); err != nil {
		return nil, nil, "", err
	}
	return s, c, source, nil
}
