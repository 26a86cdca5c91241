package flow

import (
	"imapflow/internal/imap"
)

const (
	// DefaultBucketIntervalMS is the width of one time bucket.
	DefaultBucketIntervalMS = 1000
	// DefaultIdleTimeoutMS is how long a flow may sit without activity
	// before it becomes eligible for reclamation.
	DefaultIdleTimeoutMS = 120_000
)

// Table owns every active Flow, indexed by its normalized FlowKey, plus
// a time-bucket index supporting amortized O(expired) idle reclamation.
// A Table is single-threaded: it is meant to be driven by one worker at
// a time, with parallelism achieved by sharding across Table instances
// keyed by FlowKey hash at the ingress layer, never by locking one
// Table from multiple goroutines.
type Table struct {
	flows map[FlowKey]*Flow

	// buckets maps floor(lastActivityMS / bucketIntervalMS) to the set
	// of flows last active in that window.
	buckets map[int64]map[FlowKey]struct{}

	bufferCapacity   int
	idleTimeoutMS    int64
	bucketIntervalMS int64
	logf             imap.Logf
}

// NewTable builds an empty Table. bufferCapacity sizes each Flow's two
// CircularBuffers; idleTimeoutMS and bucketIntervalMS default to
// DefaultIdleTimeoutMS/DefaultBucketIntervalMS when zero.
func NewTable(bufferCapacity int, idleTimeoutMS, bucketIntervalMS int64, logf imap.Logf) *Table {
	if idleTimeoutMS == 0 {
		idleTimeoutMS = DefaultIdleTimeoutMS
	}
	if bucketIntervalMS == 0 {
		bucketIntervalMS = DefaultBucketIntervalMS
	}
	return &Table{
		flows:            make(map[FlowKey]*Flow),
		buckets:          make(map[int64]map[FlowKey]struct{}),
		bufferCapacity:   bufferCapacity,
		idleTimeoutMS:    idleTimeoutMS,
		bucketIntervalMS: bucketIntervalMS,
		logf:             logf,
	}
}

// SetTimeout changes the idle timeout applied by future reclamation
// passes.
func (t *Table) SetTimeout(idleTimeoutMS int64) {
	t.idleTimeoutMS = idleTimeoutMS
}

// FlowCount returns the number of flows currently tracked.
func (t *Table) FlowCount() int {
	return len(t.flows)
}

// AllFlows returns every currently tracked Flow, in no particular order.
func (t *Table) AllFlows() []*Flow {
	out := make([]*Flow, 0, len(t.flows))
	for _, f := range t.flows {
		out = append(out, f)
	}
	return out
}

func (t *Table) bucketOf(ms int64) int64 {
	return ms / t.bucketIntervalMS
}

func (t *Table) bucketSet(bucket int64) map[FlowKey]struct{} {
	s, ok := t.buckets[bucket]
	if !ok {
		s = make(map[FlowKey]struct{})
		t.buckets[bucket] = s
	}
	return s
}

func (t *Table) moveBucket(key FlowKey, oldBucket, newBucket int64) {
	if oldBucket == newBucket {
		return
	}
	if s, ok := t.buckets[oldBucket]; ok {
		delete(s, key)
		if len(s) == 0 {
			delete(t.buckets, oldBucket)
		}
	}
	t.bucketSet(newBucket)[key] = struct{}{}
}

// Process is the single entry point upstream calls with a reassembled
// payload slice: it normalizes the tuple to the FlowKey both directions
// share, resolves (or creates) the Flow, appends payload to the
// matching-direction buffer, drives the matching parser, advances
// last-activity to nowMS, tears the flow down immediately on LOGOUT,
// and finally runs one opportunistic idle-reclamation pass.
//
// obs, if non-nil, is notified of every Message newly parsed by this
// call.
func (t *Table) Process(dir Direction, tuple FourTuple, payload []byte, nowMS int64, obs Observer) error {
	key := normalize(dir, tuple)

	f, ok := t.flows[key]
	if !ok {
		var err error
		f, err = NewFlow(key, t.bufferCapacity, t.logf)
		if err != nil {
			return err
		}
		t.flows[key] = f
		t.bucketSet(t.bucketOf(nowMS))[key] = struct{}{}

		f.Ingest(dir, payload, nowMS, obs)
	} else {
		oldBucket := t.bucketOf(f.lastActivityMS)
		f.Ingest(dir, payload, nowMS, obs)
		t.moveBucket(key, oldBucket, t.bucketOf(f.lastActivityMS))
	}

	if f.LoggedOut() {
		t.Delete(f)
		t.reclaimIdle(nowMS)
		return nil
	}

	t.reclaimIdle(nowMS)
	return nil
}

// Delete removes f from the table and its time bucket immediately,
// regardless of its idle state.
func (t *Table) Delete(f *Flow) {
	if _, ok := t.flows[f.Key]; !ok {
		return
	}
	delete(t.flows, f.Key)
	bucket := t.bucketOf(f.lastActivityMS)
	if s, ok := t.buckets[bucket]; ok {
		delete(s, f.Key)
		if len(s) == 0 {
			delete(t.buckets, bucket)
		}
	}
}

// reclaimIdle walks every time bucket whose key is old enough that any
// flow in it could have exceeded the idle timeout, re-verifies each
// flow's own last-activity (a flow may have been re-touched since being
// bucketed, though Process always re-buckets on touch so this is a
// defensive check, not a required one), and deletes expired flows. Cost
// is proportional to the number of expired flows plus the number of
// buckets scanned, not to the number of live flows.
func (t *Table) reclaimIdle(nowMS int64) {
	threshold := t.bucketOf(nowMS - t.idleTimeoutMS)
	for bucket, keys := range t.buckets {
		if bucket > threshold {
			continue
		}
		for key := range keys {
			f, ok := t.flows[key]
			if !ok {
				continue
			}
			if f.IsTimeout(nowMS, t.idleTimeoutMS) {
				t.Delete(f)
			}
		}
	}
}
