// Shared helpers for roofmat CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/geoforge/roofmat/internal/store"
	"github.com/geoforge/roofmat/pkg/types"
)

// attachStore resolves the data directory, creates the run registry, and
// attaches it. The caller must defer st.Detach().
func attachStore() (*store.Store, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	backend := configBackend
	if backend == "" {
		backend = types.BackendSQLite
	}
	cfg := types.Config{
		Backend: backend,
		DataDir: dataDir,
	}

	st := store.New()
	if err := st.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach registry: %w", err)
	}

	return st, nil
}

// findRun resolves a run by full ID or unique ID prefix.
func findRun(st *store.Store, idOrPrefix string) (*types.Run, error) {
	run, err := st.GetRun(idOrPrefix)
	if err == nil {
		return run, nil
	}
	if err != types.ErrNotFound {
		return nil, err
	}

	runs, err := st.ListRuns(store.RunFilter{})
	if err != nil {
		return nil, err
	}
	var matches []*types.Run
	for _, r := range runs {
		if strings.HasPrefix(r.RunID, idOrPrefix) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, types.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q is ambiguous (%d matches)", idOrPrefix, len(matches))
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// fatalf prints to stderr and exits with the given code.
func fatalf(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
