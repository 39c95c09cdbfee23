package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hillu/go-yara/v4"

	"github.com/obscura-sec/warden/pkg/logging"
	"github.com/obscura-sec/warden/pkg/plugin"
	"github.com/obscura-sec/warden/pkg/ruleset"
	"github.com/obscura-sec/warden/pkg/types"
)

// timestampLayout matches plast's ISO-ish local timestamp rendering
// (framework/api/external/rendering.py:timestamp), configurable only in
// the sense that the format string lives in one place.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type workerConfig struct {
	store          *ruleset.Store
	fast           bool
	matchTimeout   time.Duration
	hashAlgorithms []string
	callbacks      []plugin.Callback
	log            logging.Sink
}

// runWorker is one scanner: isolated parallel executor with its own
// ruleset cache, never sharing a deserialized *yara.Rules with any other
// worker (spec section 4.3 — the matching engine is not guaranteed safe
// under concurrent use of the same compiled artifact).
func runWorker(ctx context.Context, jobs <-chan string, results chan<- resultItem, cfg workerConfig) {
	cache := make(map[string]*yara.Rules)
	defer func() {
		for _, r := range cache {
			r.Destroy()
		}
	}()

	for evidence := range jobs {
		select {
		case <-ctx.Done():
			// Cooperative shutdown: stop accepting new work, but the
			// range loop keeps draining the channel so dispatch() (which
			// also observes ctx.Done) can return and Run can close it
			// without deadlocking on a full buffer.
			continue
		default:
		}
		scanEvidence(ctx, evidence, cache, results, cfg)
	}
}

// scanEvidence runs every ruleset in the store against one evidence file
// (spec section 4.3's per-job procedure).
func scanEvidence(ctx context.Context, evidence string, cache map[string]*yara.Rules, results chan<- resultItem, cfg workerConfig) {
	var hashes map[string]string
	hashComputed := false

	for _, name := range cfg.store.Names() {
		rules, err := loadCached(cache, cfg.store, name)
		if err != nil {
			cfg.log.Exceptionf(err, "loading ruleset %s for evidence %s", name, evidence)
			continue
		}

		var matches yara.MatchRules
		flags := yara.ScanFlags(0)
		if cfg.fast {
			flags |= yara.ScanFlagsFastMode
		}

		if err := rules.ScanFile(evidence, flags, cfg.matchTimeout, &matches); err != nil {
			if isTimeoutErr(err) {
				cfg.log.Warnf("timeout exceeded for evidence %s (ruleset %s)", evidence, name)
			} else {
				cfg.log.Exceptionf(err, "yara error scanning evidence %s (ruleset %s)", evidence, name)
			}
			continue
		}

		for _, m := range matches {
			if !hashComputed {
				var hashErr error
				hashes, hashErr = computeHashes(evidence, cfg.hashAlgorithms)
				if hashErr != nil {
					cfg.log.Exceptionf(hashErr, "hashing evidence %s", evidence)
					hashes = map[string]string{}
				}
				hashComputed = true
			}

			record := buildRecord(evidence, m, hashes)

			// Callbacks run before the record reaches the reader so a
			// callback that annotates the record (e.g. a validation
			// verdict) cannot race the reader's concurrent JSON encode.
			for _, cb := range cfg.callbacks {
				invokeCallback(cb, record, cfg.log)
			}

			select {
			case results <- resultItem{record: record}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func loadCached(cache map[string]*yara.Rules, store *ruleset.Store, name string) (*yara.Rules, error) {
	if rules, ok := cache[name]; ok {
		return rules, nil
	}
	rules, err := store.Load(name)
	if err != nil {
		return nil, err
	}
	cache[name] = rules
	return rules, nil
}

func isTimeoutErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// invokeCallback runs one Callback synchronously before the record is
// enqueued (spec section 4.3 step 4). A callback panicking must not
// prevent the record from reaching the output file, so the panic is
// recovered and logged here rather than propagating out of the worker.
func invokeCallback(cb plugin.Callback, record *types.MatchRecord, log logging.Sink) {
	defer func() {
		if r := recover(); r != nil {
			log.Exceptionf(fmt.Errorf("%v", r), "callback %s panicked", cb.Name())
		}
	}()
	cb.Run(record)
}

// buildRecord constructs the MatchRecord from one yara.MatchRule hit.
func buildRecord(evidence string, m yara.MatchRule, hashes map[string]string) *types.MatchRecord {
	strs := make([]types.MatchString, 0, len(m.Strings))
	for _, s := range m.Strings {
		strs = append(strs, types.MatchString{
			Offset:    s.Offset,
			Reference: s.Name,
			Literal:   decodeLiteral(s.Data),
		})
	}

	meta := make(map[string]string, len(m.Metas))
	for _, mm := range m.Metas {
		meta[mm.Identifier] = fmt.Sprintf("%v", mm.Value)
	}

	return &types.MatchRecord{
		Origin: originProduct,
		Target: types.Target{Type: "file", Identifier: evidence},
		Match: types.Match{
			Timestamp: time.Now().Format(timestampLayout),
			Rule:      m.Rule,
			Meta:      meta,
			Namespace: m.Namespace,
			Tags:      m.Tags,
			Hashes:    hashes,
			Strings:   strs,
		},
	}
}

// decodeLiteral decodes a matched byte range as UTF-8, escaping invalid
// bytes instead of dropping them (spec section 3, match.strings.literal) —
// equivalent to Python's bytes.decode("utf-8", "backslashreplace").
func decodeLiteral(data []byte) string {
	var sb strings.Builder
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			sb.WriteString(fmt.Sprintf("\\x%02x", data[0]))
			data = data[1:]
			continue
		}
		sb.WriteRune(r)
		data = data[size:]
	}
	return sb.String()
}
