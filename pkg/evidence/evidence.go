// Package evidence implements the append-only, canonically-sealed event
// log produced by a run: the EvidenceRecorder.
package evidence

import (
	"fmt"
	"time"

	"github.com/mk10pro/truthcore/pkg/canonical"
	"github.com/mk10pro/truthcore/pkg/crypto"
)

// Kind enumerates the fixed set of evidence event kinds.
type Kind string

const (
	KindExecutionStart     Kind = "execution_start"
	KindExecutionComplete  Kind = "execution_complete"
	KindExecutionFailure   Kind = "execution_failure"
	KindNodeExecution      Kind = "node_execution"
	KindPolicyCheck        Kind = "policy_check"
	KindValidation         Kind = "validation"
	KindStateTransition    Kind = "state_transition"
	KindIngestRecorded     Kind = "ingest_recorded"
	KindArchiveDeclaration Kind = "archive_declaration"
)

// IntegrityProof binds an event to its own canonical bytes.
type IntegrityProof struct {
	Alg  string `json:"alg"`
	Hash string `json:"hash"`
}

// Event is a single sealed record: {seq, kind, timestamp, payload, integrity_proof}.
type Event struct {
	Seq            uint64                 `json:"seq"`
	Kind           Kind                   `json:"kind"`
	Timestamp      time.Time              `json:"timestamp"`
	Payload        map[string]interface{} `json:"payload"`
	IntegrityProof IntegrityProof         `json:"integrity_proof"`
}

// unproofed is the shape hashed to produce IntegrityProof.Hash: the event
// without its own proof field.
type unproofed struct {
	Seq       uint64                 `json:"seq"`
	Kind      Kind                   `json:"kind"`
	Timestamp string                 `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// LogFrozen is returned by Record once Freeze has been called.
type LogFrozen struct{}

func (e *LogFrozen) Error() string { return "evidence log is frozen" }

// Delta is the implementation-fixed interval between successive event
// timestamps; it does not affect correctness, only readability of the
// derived timestamps.
const Delta = time.Millisecond

// Recorder owns the append-only event list for a single run. It never
// reads the wall clock: every timestamp is base_time + seq*Delta.
type Recorder struct {
	baseTime time.Time
	events   []Event
	frozen   bool
}

// NewRecorder creates a Recorder anchored to baseTime (normally
// execctx.Context.BaseTime()).
func NewRecorder(baseTime time.Time) *Recorder {
	return &Recorder{baseTime: baseTime}
}

// Record appends a new event of the given kind and payload, computing its
// seq, timestamp, and integrity proof. Fails with LogFrozen after Freeze.
func (r *Recorder) Record(kind Kind, payload map[string]interface{}) (Event, error) {
	if r.frozen {
		return Event{}, &LogFrozen{}
	}
	seq := uint64(len(r.events))
	ts := r.baseTime.Add(time.Duration(seq) * Delta)

	canonicalPayload, err := canonicalizePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("evidence: canonicalize payload: %w", err)
	}

	proofHash, err := hashUnproofed(seq, kind, ts, canonicalPayload)
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		Seq:            seq,
		Kind:           kind,
		Timestamp:      ts,
		Payload:        canonicalPayload,
		IntegrityProof: IntegrityProof{Alg: "sha256", Hash: proofHash},
	}
	r.events = append(r.events, ev)
	return ev, nil
}

func canonicalizePayload(payload map[string]interface{}) (map[string]interface{}, error) {
	if payload == nil {
		return map[string]interface{}{}, nil
	}
	enc, err := canonical.Encode(payload)
	if err != nil {
		return nil, err
	}
	decoded, err := canonical.Decode(enc)
	if err != nil {
		return nil, err
	}
	m, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("evidence: payload did not decode to an object")
	}
	return m, nil
}

func hashUnproofed(seq uint64, kind Kind, ts time.Time, payload map[string]interface{}) (string, error) {
	u := unproofed{Seq: seq, Kind: kind, Timestamp: ts.UTC().Format(time.RFC3339Nano), Payload: payload}
	enc, err := canonical.Encode(u)
	if err != nil {
		return "", fmt.Errorf("evidence: canonicalize event: %w", err)
	}
	return crypto.Hash(enc, crypto.SHA256)
}

// Freeze makes the log immutable; subsequent Record calls fail with
// LogFrozen.
func (r *Recorder) Freeze() Log {
	r.frozen = true
	return Log{Events: append([]Event{}, r.events...), Frozen: true}
}

// Frozen reports whether Freeze has been called.
func (r *Recorder) Frozen() bool { return r.frozen }

// Reopen seeds a new, unfrozen Recorder from an already-frozen Log so
// further events can be appended to its trail — e.g. a later promotion
// decision recorded as state_transition evidence against a run whose
// execution evidence was sealed long before. base_time is recovered from
// the log's own last event so newly appended timestamps continue the same
// base_time + seq*Delta sequence; an empty log reopens at the zero time.
func Reopen(log Log) *Recorder {
	baseTime := time.Time{}
	if len(log.Events) > 0 {
		last := log.Events[len(log.Events)-1]
		baseTime = last.Timestamp.Add(-time.Duration(last.Seq) * Delta)
	}
	return &Recorder{baseTime: baseTime, events: append([]Event{}, log.Events...)}
}

// Events returns a snapshot of the events recorded so far (may be called
// before or after Freeze).
func (r *Recorder) Events() []Event {
	return append([]Event{}, r.events...)
}

// Log is the frozen, immutable evidence log handed to the MTB builder.
type Log struct {
	Events []Event `json:"events"`
	Frozen bool    `json:"frozen"`
}

// VerifyEvent recomputes event e's integrity proof and compares it against
// the stored value — the "hash(canonical(e \ proof)) == e.proof.hash"
// invariant from the testable-properties section.
func VerifyEvent(e Event) error {
	got, err := hashUnproofed(e.Seq, e.Kind, e.Timestamp, e.Payload)
	if err != nil {
		return err
	}
	if got != e.IntegrityProof.Hash {
		return fmt.Errorf("evidence: integrity proof mismatch at seq %d: want %s, got %s", e.Seq, e.IntegrityProof.Hash, got)
	}
	return nil
}

// VerifyLog checks that seq is a strictly ascending, gapless range [0, n)
// and that every event's proof verifies.
func VerifyLog(l Log) error {
	for i, e := range l.Events {
		if e.Seq != uint64(i) {
			return fmt.Errorf("evidence: seq gap or disorder at index %d: got seq %d", i, e.Seq)
		}
		if err := VerifyEvent(e); err != nil {
			return err
		}
	}
	return nil
}
