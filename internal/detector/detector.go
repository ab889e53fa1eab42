package detector

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/willibrandon/pgtail/internal/instance"
)

// strategyDeadline bounds each detection strategy so an unresponsive
// service manager or filesystem cannot hang the whole scan.
const strategyDeadline = 2 * time.Second

// DetectionResult holds the outcome of a full detection scan.
type DetectionResult struct {
	// Instances is the deduplicated set of detected instances, running
	// instances first, then in discovery order.
	Instances []*instance.Instance

	// Errors contains one DetectionError per failed strategy. Detection
	// continues even when individual strategies fail.
	Errors []error

	// SkippedSources lists strategy names that contributed at least one
	// error.
	SkippedSources []string
}

// HasErrors reports whether any strategy produced an error.
func (r *DetectionResult) HasErrors() bool { return len(r.Errors) > 0 }

// InstanceCount returns the number of deduplicated instances found.
func (r *DetectionResult) InstanceCount() int { return len(r.Instances) }

type strategyResult struct {
	source    string
	instances []*instance.Instance
	err       error
}

// Detect scans for PostgreSQL instances using every available strategy.
// Strategies run concurrently (they are read-only apart from the Service
// strategy's shell-outs) and each is bounded by strategyDeadline; a slow
// or failing strategy contributes an error without blocking or discarding
// the others. Results are deduplicated by canonical data directory with
// service-registered running instances always winning over a bare path
// match (SPEC_FULL.md §4.2).
func Detect(ctx context.Context) *DetectionResult {
	type namedStrategy struct {
		name string
		run  func(context.Context) ([]*instance.Instance, error)
	}

	strategies := []namedStrategy{
		{"processes", DetectFromProcesses},
		{"pgrx", DetectFromPgrx},
		{"env", func(ctx context.Context) ([]*instance.Instance, error) {
			inst, err := DetectFromEnvVar(ctx)
			if inst == nil || err != nil {
				return nil, err
			}
			return []*instance.Instance{inst}, nil
		}},
		{"known paths", DetectFromKnownPaths},
		{"service", DetectFromService},
	}

	results := make([]strategyResult, len(strategies))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(context.Background())
	for i, s := range strategies {
		i, s := i, s
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, strategyDeadline)
			defer cancel()

			insts, err := s.run(sctx)

			mu.Lock()
			results[i] = strategyResult{source: s.name, instances: insts, err: err}
			mu.Unlock()

			// Never propagate: errgroup's first-error cancellation would
			// abandon sibling strategies, which SPEC_FULL.md §4.2
			// explicitly says must not happen.
			return nil
		})
	}
	_ = g.Wait()

	result := &DetectionResult{Instances: make([]*instance.Instance, 0)}
	var merr *multierror.Error

	byDataDir := make(map[string]*instance.Instance)
	var order []string

	for _, r := range results {
		if r.err != nil {
			merr = multierror.Append(merr, &DetectionError{Source: r.source, Err: r.err})
			result.SkippedSources = append(result.SkippedSources, r.source)
		}
		for _, inst := range r.instances {
			key := normalizeDataDir(inst.DataDir)
			existing, ok := byDataDir[key]
			if !ok {
				byDataDir[key] = inst
				order = append(order, key)
				continue
			}
			if instance.WinsDedup(existing, inst) {
				byDataDir[key] = inst
			}
		}
	}

	for _, key := range order {
		result.Instances = append(result.Instances, byDataDir[key])
	}
	sortRunningFirst(result.Instances)

	if merr != nil && merr.Len() > 0 {
		result.Errors = merr.Errors
	}

	return result
}

// sortRunningFirst stable-sorts running instances ahead of stopped ones,
// preserving discovery order within each group.
func sortRunningFirst(instances []*instance.Instance) {
	running := make([]*instance.Instance, 0, len(instances))
	stopped := make([]*instance.Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.Running {
			running = append(running, inst)
		} else {
			stopped = append(stopped, inst)
		}
	}
	copy(instances, append(running, stopped...))
}

// normalizeDataDir canonicalizes a data directory path for deduplication:
// absolute, cleaned, and case-folded on filesystems that are typically
// case-insensitive.
func normalizeDataDir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.Clean(abs)
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		abs = strings.ToLower(abs)
	}
	return abs
}
