// Package pipeline is the core of warden: ruleset-to-evidence matching,
// described in spec sections 4.2 through 4.6 (Dispatcher, WorkerPool,
// ResultChannel, Reader). It is grounded on two sources:
//
//   - original_source/plast/framework/core/engine.py's _dispatch_jobs
//     (queue + process pool + manager-backed shared counter) and
//     processors.py's File.run (per-evidence matching loop) and
//     reader.py's Reader (single-writer result consumer), for the exact
//     sequencing, sentinel handling, and error policy;
//   - the teacher's pkg/enum/filesystem.go two-phase walk-then-parallel-
//     process shape, for the idiomatic Go replacement of Python's
//     multiprocessing.Pool + Manager().Queue() with goroutines, channels,
//     and a plain sync.Mutex-guarded counter (Design Notes re-architecture
//     item 4).
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/obscura-sec/warden/pkg/config"
	"github.com/obscura-sec/warden/pkg/logging"
	"github.com/obscura-sec/warden/pkg/plugin"
	"github.com/obscura-sec/warden/pkg/ruleset"
	"github.com/obscura-sec/warden/pkg/types"
)

const originProduct = "warden"

// Config carries everything one Run needs: the evidence list already
// resolved by preprocessing, the compiled ruleset store, the arguments
// snapshot, and the callbacks to invoke per match (spec section 6).
type Config struct {
	Evidences      []string
	Store          *ruleset.Store
	MatchesPath    string
	Arguments      config.Arguments
	Tunables       config.Tunables
	Callbacks      []plugin.Callback
	Log            logging.Sink
	DetectedCPUs   int
}

// resultItem is the ResultChannel payload: either a MatchRecord or the
// done_sentinel (sentinel == true, record == nil).
type resultItem struct {
	record   *types.MatchRecord
	sentinel bool
}

// Run executes the scan pipeline to completion (or until ctx is
// cancelled) and returns the final RunState plus the evidence identifiers
// that produced at least one match, for the archiver (spec section 4.6).
//
// Opening the output file is the only fatal error this function returns
// (spec section 7, OutputOpenError); every other per-evidence or
// per-ruleset failure is logged and skipped.
func Run(ctx context.Context, cfg Config) (*types.RunState, []string, error) {
	out, err := os.OpenFile(cfg.MatchesPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening output file %s: %w", cfg.MatchesPath, err)
	}
	defer out.Close()

	processes := cfg.Arguments.Processes
	if processes <= 0 {
		snap := config.Snapshot{Arguments: cfg.Arguments, Tunables: cfg.Tunables}
		processes = snap.EffectiveProcesses(cfg.DetectedCPUs)
	}

	state := types.NewRunState()
	results := make(chan resultItem, processes*4)
	jobs := make(chan string, processes*2)

	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		runReader(out, results, state, cfg.Log)
	}()

	// The bounded worker fan-out is an errgroup.Group rather than a bare
	// sync.WaitGroup: runWorker never actually fails (every per-evidence
	// error is logged and swallowed, spec section 4.3 step 5), but the
	// group gives the pool the same "wait for every goroutine, no matter
	// how it exits" shape as pkg/enum/filesystem.go's parallel-process
	// phase without reimplementing it by hand.
	g, _ := errgroup.WithContext(ctx)
	wc := workerConfig{
		store:          cfg.Store,
		fast:           cfg.Arguments.Fast,
		matchTimeout:   matchTimeout(cfg.Tunables),
		hashAlgorithms: cfg.Arguments.HashAlgorithms,
		callbacks:      cfg.Callbacks,
		log:            cfg.Log,
	}
	for i := 0; i < processes; i++ {
		g.Go(func() error {
			runWorker(ctx, jobs, results, wc)
			return nil
		})
	}

	dispatch(ctx, cfg.Evidences, cfg.Arguments.MaxSize, jobs, cfg.Log)
	close(jobs)

	_ = g.Wait()
	// done_sentinel is strictly last: sent only after every in-flight job
	// has been submitted and drained (spec section 4.4).
	results <- resultItem{sentinel: true}
	readerWG.Wait()

	return state, state.MatchedEvidences(), nil
}

func matchTimeout(t config.Tunables) time.Duration {
	if t.YaraMatchTimeout > 0 {
		return t.YaraMatchTimeout
	}
	return 10 * time.Second
}

// dispatch applies the size cap (spec section 4.2) before enqueueing each
// evidence, so oversized files never consume a worker slot. It stops
// enqueueing as soon as ctx is cancelled (cooperative shutdown, spec
// section 5).
func dispatch(ctx context.Context, evidences []string, maxSize int64, jobs chan<- string, log logging.Sink) {
	for _, evidence := range evidences {
		info, err := os.Stat(evidence)
		if err != nil {
			log.Warnf("cannot stat evidence %s: %v", evidence, err)
			continue
		}
		if maxSize > 0 && info.Size() > maxSize {
			log.Warnf("evidence %s exceeds the maximum size (%d > %d); skipping", evidence, info.Size(), maxSize)
			continue
		}

		select {
		case jobs <- evidence:
		case <-ctx.Done():
			return
		}
	}
}
