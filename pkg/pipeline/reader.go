package pipeline

import (
	"encoding/json"
	"io"

	"github.com/obscura-sec/warden/pkg/logging"
	"github.com/obscura-sec/warden/pkg/types"
)

// runReader is the single consumer of the ResultChannel (spec section 4.4):
// it is the only goroutine that ever writes to the output file or mutates
// RunState, so no locking is needed around the write itself. It returns as
// soon as it observes the done_sentinel.
func runReader(out io.Writer, results <-chan resultItem, state *types.RunState, log logging.Sink) {
	enc := json.NewEncoder(out)

	for item := range results {
		if item.sentinel {
			break
		}

		if err := enc.Encode(item.record); err != nil {
			log.Exceptionf(err, "writing match record for %s", item.record.Target.Identifier)
			continue
		}

		state.RecordMatch(item.record.Target.Identifier)
	}

	count := state.MatchCount()
	if count > 0 {
		log.Warnf("scan complete: %d match(es) recorded", count)
	} else {
		log.Infof("scan complete: no matches recorded")
	}
}
