// Package batch describes per-item outcomes of operations that fan out over
// many independent items, such as the documents of one assembly run.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusError   ItemStatus = "error"
	StatusSkipped ItemStatus = "skipped"
)

// Result is the outcome of processing one item, keyed by the item IRI.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// NewSkipped creates a result for an item that was deliberately not processed.
func NewSkipped(id string, err error) Result {
	return Result{id: id, status: StatusSkipped, err: err}
}

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Report aggregates the results of one batch run.
type Report struct {
	Results []Result
}

// Add appends r to the report.
func (rep *Report) Add(r Result) { rep.Results = append(rep.Results, r) }

// Built returns the identifiers of successful items in insertion order.
func (rep Report) Built() []string { return rep.ids(StatusOK) }

// Failed returns the identifiers of failed items in insertion order.
func (rep Report) Failed() []string { return rep.ids(StatusError) }

// Skipped returns the identifiers of skipped items in insertion order.
func (rep Report) Skipped() []string { return rep.ids(StatusSkipped) }

func (rep Report) ids(status ItemStatus) []string {
	var out []string
	for _, r := range rep.Results {
		if r.status == status {
			out = append(out, r.id)
		}
	}
	return out
}
