// Package execctx provides the immutable ExecutionContext: a run's DAG,
// workspace id, deterministic time base, and ingest-asset table.
package execctx

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mk10pro/truthcore/pkg/crypto"
	"github.com/mk10pro/truthcore/pkg/dag"
)

// IngestAsset is one entry in the ingest manifest (§3, §6). Key is the
// logical handle a DAG source node uses to reference this asset as an
// edge's "from" endpoint (e.g. "raw_audio"); it is distinct from the
// content address, which is the asset's sole legitimate identity.
type IngestAsset struct {
	Key            string                 `json:"key"`
	ContentAddress string                 `json:"content_address"`
	Path           string                 `json:"path"`
	Hash           string                 `json:"hash"`
	Size           int64                  `json:"size"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Context is immutable after construction. Nothing in this package ever
// calls time.Now(); base_time is either caller-supplied or derived purely
// from the DAG fingerprint.
type Context struct {
	graph       *dag.Graph
	workspaceID string
	baseTime    time.Time
	assets      []IngestAsset
	assetByAddr map[string]IngestAsset
	assetByKey  map[string]IngestAsset
	fingerprint string
}

// Option configures New.
type Option func(*options)

type options struct {
	workspaceID string
	baseTime    *time.Time
}

// WithWorkspaceID supplies an explicit workspace id; otherwise one is
// generated via google/uuid.
func WithWorkspaceID(id string) Option {
	return func(o *options) { o.workspaceID = id }
}

// WithBaseTime supplies an explicit base_time; otherwise it is derived
// deterministically from the DAG fingerprint per §4.6:
// epoch + (fingerprint mod 2^31) seconds.
func WithBaseTime(t time.Time) Option {
	return func(o *options) { o.baseTime = &t }
}

// New constructs a Context for a single run. It is the single source of
// truth about "when" and "what inputs" for evidence purposes.
func New(g *dag.Graph, assets []IngestAsset, opts ...Option) (*Context, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	fp, err := g.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("execctx: fingerprint dag: %w", err)
	}

	workspaceID := o.workspaceID
	if workspaceID == "" {
		workspaceID = uuid.NewString()
	}

	baseTime := time.Time{}
	if o.baseTime != nil {
		baseTime = *o.baseTime
	} else {
		baseTime = deriveBaseTime(fp)
	}

	byAddr := make(map[string]IngestAsset, len(assets))
	byKey := make(map[string]IngestAsset, len(assets))
	for _, a := range assets {
		byAddr[a.ContentAddress] = a
		if a.Key != "" {
			byKey[a.Key] = a
		}
	}

	return &Context{
		graph:       g,
		workspaceID: workspaceID,
		baseTime:    baseTime,
		assets:      append([]IngestAsset{}, assets...),
		assetByAddr: byAddr,
		assetByKey:  byKey,
		fingerprint: fp,
	}, nil
}

// deriveBaseTime computes epoch + (fingerprint mod 2^31) seconds, reading
// the fingerprint as a big-endian integer. Since 2^31 divides 2^32, only the
// last 4 bytes (8 hex digits) affect the result — fully determined by DAG
// content, never by the wall clock.
func deriveBaseTime(fingerprintHex string) time.Time {
	var n uint32
	if len(fingerprintHex) >= 8 {
		fmt.Sscanf(fingerprintHex[len(fingerprintHex)-8:], "%08x", &n)
	}
	offset := n % (1 << 31)
	return time.Unix(int64(offset), 0).UTC()
}

// Graph returns the run's DAG. The context exclusively owns it for the
// duration of the run.
func (c *Context) Graph() *dag.Graph { return c.graph }

// WorkspaceID returns the opaque workspace identifier.
func (c *Context) WorkspaceID() string { return c.workspaceID }

// BaseTime returns the deterministic time base for this run.
func (c *Context) BaseTime() time.Time { return c.baseTime }

// Fingerprint returns the DAG's canonical fingerprint, computed once at
// construction.
func (c *Context) Fingerprint() string { return c.fingerprint }

// Assets returns the ingest-asset table in the order supplied.
func (c *Context) Assets() []IngestAsset {
	return append([]IngestAsset{}, c.assets...)
}

// Asset looks up an ingest asset by content address.
func (c *Context) Asset(addr string) (IngestAsset, bool) {
	a, ok := c.assetByAddr[addr]
	return a, ok
}

// AssetByKey looks up an ingest asset by its logical DAG-edge key.
func (c *Context) AssetByKey(key string) (IngestAsset, bool) {
	a, ok := c.assetByKey[key]
	return a, ok
}

// ExecutionID returns SHA-256(canonical(DAG) || workspace_id), deterministic
// for a given (DAG, workspace) pair.
func (c *Context) ExecutionID() (string, error) {
	canonicalDAG, err := c.graph.CanonicalBytes()
	if err != nil {
		return "", fmt.Errorf("execctx: canonicalize dag: %w", err)
	}
	buf := append(append([]byte{}, canonicalDAG...), []byte(c.workspaceID)...)
	return crypto.Hash(buf, crypto.SHA256)
}
