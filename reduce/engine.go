package reduce

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// defaultMaxRounds bounds the reduction loop when the config leaves it unset.
// Every accepted round strictly shrinks the source, so the loop terminates on
// its own; the bound only guards against pathological inputs.
const defaultMaxRounds = 1000

// Config holds settings for one reducer invocation.
type Config struct {
	// FilePath is the C translation unit to transform.
	FilePath string
	// Transformation is the registry name of the pass to run.
	Transformation string
	// Counter selects the 1-based instance for a single-shot transform.
	Counter int
	// QueryInstanceOnly suppresses all edits and only reports the instance count.
	QueryInstanceOnly bool
	// OutputFile receives the transformed source; empty means stdout.
	OutputFile string
	// Reduce enables the iterative reduction loop instead of a single-shot transform.
	Reduce bool
	// MaxRounds bounds the reduction loop; 0 applies the default bound.
	MaxRounds int
	// CacheDir, when set, enables the durable verdict cache at that path.
	CacheDir string
	// CacheMB is the cache memory budget in MB.
	CacheMB int
	// ReportJsonFile is the reduction report output path, empty to skip.
	ReportJsonFile string
	// ReportChartsFile is the progress chart output path, empty to skip.
	ReportChartsFile string
}

// Oracle decides whether a candidate variant is still interesting, i.e.
// whether the reduction loop may adopt it. Returned errors abort the run;
// a merely uninteresting variant is (false, nil).
type Oracle interface {
	StillInteresting(filename string, src []byte) (bool, error)
}

// CompileOracle accepts every variant the C frontend still translates.
// Reduction preserves compilability, nothing more.
type CompileOracle struct{}

func (CompileOracle) StillInteresting(filename string, src []byte) (bool, error) {
	return CompileCheck(filename, src) == nil, nil
}

// ReductionEngine repeatedly applies one transformation to a translation
// unit, keeping the smallest variant the oracle accepts each round, until no
// instance improves the source.
type ReductionEngine struct {
	config *Config
	oracle Oracle
}

// NewReductionEngine creates an engine using the compilability oracle.
func NewReductionEngine(config *Config) *ReductionEngine {
	return NewReductionEngineWithOracle(config, CompileOracle{})
}

// NewReductionEngineWithOracle creates an engine with a custom oracle.
func NewReductionEngineWithOracle(config *Config, oracle Oracle) *ReductionEngine {
	return &ReductionEngine{config: config, oracle: oracle}
}

// ReductionOutcome is the final variant plus the run's report.
type ReductionOutcome struct {
	FinalSource []byte
	Report      ReductionReport
}

// Run executes the reduction loop and returns the outcome. Report files
// configured on the Config are written before returning.
func (e *ReductionEngine) Run() (*ReductionOutcome, error) {
	start := time.Now()
	src, err := os.ReadFile(e.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read source failed: %w", err)
	}
	filename := filepath.Base(e.config.FilePath)

	store, err := e.openStorage()
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer store.Close()
	}
	verdicts, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: 100_000,
		MaxCost:     int64(max(e.config.CacheMB, 16)) << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create verdict cache failed: %w", err)
	}
	defer verdicts.Close()

	maxRounds := e.config.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}

	current := src
	var rounds []RoundReport
	for round := 1; round <= maxRounds; round++ {
		winner, roundReport, err := e.runRound(round, filename, current, store, verdicts)
		if err != nil {
			return nil, err
		} else if winner == nil {
			break // fixpoint, no instance improved the source
		}
		log.Printf("round %d: instance %d accepted, %d -> %d bytes",
			round, roundReport.Instance, len(current), len(winner))
		current = winner
		rounds = append(rounds, *roundReport)
	}

	report := ReductionReport{
		FileName:       filename,
		Transformation: e.config.Transformation,
		OriginalSize:   len(src),
		FinalSize:      len(current),
		Rounds:         rounds,
		ElapsedMs:      time.Since(start).Milliseconds(),
		Diff:           unifiedDiff(src, current),
	}
	if err := WriteReportFiles(&report, e.config.ReportJsonFile, e.config.ReportChartsFile); err != nil {
		return nil, err
	}
	return &ReductionOutcome{FinalSource: current, Report: report}, nil
}

func (e *ReductionEngine) openStorage() (Storage, error) {
	if e.config.CacheDir == "" {
		return nil, nil
	}
	store, err := NewBadgerStorage(e.config.CacheDir, max(e.config.CacheMB, 16))
	if err != nil {
		return nil, err
	}
	return KeyPrefixStorage(store, e.config.Transformation), nil
}

type roundCandidate struct {
	instance    int
	src         []byte
	interesting bool
}

// runRound generates every instance's variant from the current source,
// evaluates them, and returns the smallest accepted variant that is strictly
// smaller than the current source, or nil when the round found none.
func (e *ReductionEngine) runRound(round int, filename string, current []byte,
	store Storage, verdicts *ristretto.Cache[string, bool]) ([]byte, *RoundReport, error) {
	prog, err := ParseProgram(filename, current)
	if err != nil {
		// Accepted variants always passed the oracle, so the current source
		// parsed last round; failing here is an engine invariant violation.
		return nil, nil, fmt.Errorf("%w: current variant no longer parses: %v", ErrInternal, err)
	}
	trans, err := NewTransformation(e.config.Transformation)
	if err != nil {
		return nil, nil, err
	}
	count := trans.InstanceCount(prog)
	if count == 0 {
		return nil, nil, nil
	}

	// Variants are generated serially against the shared AST; only the
	// oracle checks run in parallel.
	candidates := make([]*roundCandidate, 0, count)
	for i := 1; i <= count; i++ {
		out, err := trans.Apply(prog, i)
		if IsNormalTransformError(err) {
			break
		} else if err != nil {
			log.Printf("%stransformation instance %d failed: %v", ErrorLogPrefix, i, err)
			continue // skip the candidate, reduction is best-effort
		}
		candidates = append(candidates, &roundCandidate{instance: i, src: out})
	}

	var cacheHits atomic.Int64
	errGroup := ErrGroupLimitCPU()
	for _, c := range candidates {
		errGroup.Go(func() error {
			interesting, cached, err := e.checkVariant(filename, c.src, store, verdicts)
			if err != nil {
				return err
			}
			c.interesting = interesting
			if cached {
				cacheHits.Add(1)
			}
			return nil
		})
	}
	if err := errGroup.Wait(); err != nil {
		return nil, nil, err
	}

	var best *roundCandidate
	for _, c := range candidates {
		if !c.interesting || len(c.src) >= len(current) {
			continue
		}
		if best == nil || len(c.src) < len(best.src) {
			best = c
		}
	}
	if best == nil {
		return nil, nil, nil
	}
	return best.src, &RoundReport{
		Round:      round,
		Instance:   best.instance,
		Candidates: count,
		Size:       len(best.src),
		CacheHits:  int(cacheHits.Load()),
	}, nil
}

// checkVariant resolves a variant's verdict: in-memory cache first, then the
// durable store, then the oracle. Cache failures are logged and treated as
// misses; only oracle failures abort the run.
func (e *ReductionEngine) checkVariant(filename string, src []byte,
	store Storage, verdicts *ristretto.Cache[string, bool]) (interesting, cached bool, _ error) {
	key := VariantKey(src)
	if v, ok := verdicts.Get(key); ok {
		return v, true, nil
	}
	if store != nil {
		if blob, ok, err := store.LoadState(key); err != nil {
			log.Printf("%sverdict cache read failed: %v", ErrorLogPrefix, err)
		} else if ok {
			if record, err := UnmarshalVariantRecord(blob); err != nil {
				log.Printf("%sverdict cache record corrupt: %v", ErrorLogPrefix, err)
			} else {
				verdicts.Set(key, record.Interesting, int64(len(key))+1)
				return record.Interesting, true, nil
			}
		}
	}

	interesting, err := e.oracle.StillInteresting(filename, src)
	if err != nil {
		return false, false, fmt.Errorf("oracle failed: %w", err)
	}
	verdicts.Set(key, interesting, int64(len(key))+1)
	if store != nil {
		if blob, err := NewVariantRecord(src, interesting).MarshalBlob(); err != nil {
			log.Printf("%sverdict record encode failed: %v", ErrorLogPrefix, err)
		} else if err := store.SaveState(key, blob); err != nil {
			log.Printf("%sverdict cache write failed: %v", ErrorLogPrefix, err)
		}
	}
	return interesting, false, nil
}
