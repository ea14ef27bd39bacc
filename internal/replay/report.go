package replay

import (
	"fmt"

	"github.com/fakeyudi/retrace/internal/record"
)

// Failure is one operation the replay could not checkpoint.
type Failure struct {
	OperationID string
	Err         error
}

// Report collects everything a replay dropped or could not persist.
// A non-empty report means some checkpoints are missing, not that the
// replayed history is unusable.
type Report struct {
	Malformed []record.MalformedError
	Failures  []Failure
}

func (r *Report) add(opID string, err error) {
	r.Failures = append(r.Failures, Failure{OperationID: opID, Err: err})
}

// Empty reports whether the replay completed without losses.
func (r *Report) Empty() bool {
	return len(r.Malformed) == 0 && len(r.Failures) == 0
}

// Warnings renders the report as printable one-liners.
func (r *Report) Warnings() []string {
	var out []string
	for _, m := range r.Malformed {
		out = append(out, "dropped "+m.Error())
	}
	for _, f := range r.Failures {
		out = append(out, fmt.Sprintf("operation %s not checkpointed: %v", f.OperationID, f.Err))
	}
	return out
}
