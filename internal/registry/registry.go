// Package registry implements the per-request identity registry (spec
// §4.2): an interning map that guarantees a single in-memory
// representative per logical identity (Statement handle, Blob handle)
// and merges partial knowledge about that identity as it arrives.
//
// A Registry must not outlive the request/transaction that created it;
// nothing here is safe to share across requests.
package registry

import "triplestore/internal/value"

// Registry interns Statements and Blobs by their logical handle.
type Registry struct {
	statements map[value.StatementHandle]*value.Statement
	blobs      map[value.BlobDigest]*value.Blob
}

// New returns an empty, request-scoped Registry.
func New() *Registry {
	return &Registry{
		statements: make(map[value.StatementHandle]*value.Statement),
		blobs:      make(map[value.BlobDigest]*value.Blob),
	}
}

// UniqueStatement merges s into the canonical instance for s.Handle and
// returns that canonical instance. Callers must discard s and use the
// return value going forward.
//
// Merge rules:
//   - if the canonical has no triple yet and s does, adopt s's triple
//   - if the canonical has no id yet and s does, adopt s's id
//   - if s is marked saved, the canonical becomes saved
//   - a populated triple is never overwritten by a different one; a
//     conflicting re-submission is the statement-writer's job to detect
//     (store.TripleConflict), not the registry's
func (r *Registry) UniqueStatement(s *value.Statement) *value.Statement {
	if s == nil {
		return nil
	}

	canonical, ok := r.statements[s.Handle]
	if !ok {
		r.statements[s.Handle] = s
		return s
	}

	if !canonical.HasTriple && s.HasTriple {
		canonical.Subject = s.Subject
		canonical.Predicate = s.Predicate
		canonical.Object = s.Object
		canonical.HasTriple = true
	}
	if canonical.ID == 0 && s.ID != 0 {
		canonical.ID = s.ID
	}
	if s.Saved {
		canonical.Saved = true
	}

	return canonical
}

// UniqueBlob merges b into the canonical instance for b.Handle and
// returns that canonical instance.
func (r *Registry) UniqueBlob(b *value.Blob) *value.Blob {
	if b == nil {
		return nil
	}

	canonical, ok := r.blobs[b.Handle]
	if !ok {
		r.blobs[b.Handle] = b
		return b
	}

	if canonical.ID == 0 && b.ID != 0 {
		canonical.ID = b.ID
	}

	return canonical
}

// UniqueValue interns the reference carried by v, if any, and returns a
// Value pointing at the canonical instance. Scalar values pass through
// unchanged.
func (r *Registry) UniqueValue(v value.Value) value.Value {
	switch v.Kind {
	case value.KindStatement:
		v.Statement = r.UniqueStatement(v.Statement)
		return v
	case value.KindBlob:
		v.Blob = r.UniqueBlob(v.Blob)
		return v
	default:
		return v
	}
}

// AllStatements returns every Statement currently interned, in no
// particular order. Used by the repository to collect the distinct set
// of values reachable from a create-statements batch.
func (r *Registry) AllStatements() []*value.Statement {
	out := make([]*value.Statement, 0, len(r.statements))
	for _, s := range r.statements {
		out = append(out, s)
	}
	return out
}

// AllBlobs returns every Blob currently interned, in no particular order.
func (r *Registry) AllBlobs() []*value.Blob {
	out := make([]*value.Blob, 0, len(r.blobs))
	for _, b := range r.blobs {
		out = append(out, b)
	}
	return out
}

// LookupStatement returns the canonical Statement for handle, if any has
// been interned yet.
func (r *Registry) LookupStatement(h value.StatementHandle) (*value.Statement, bool) {
	s, ok := r.statements[h]
	return s, ok
}

// LookupBlob returns the canonical Blob for handle, if any has been
// interned yet.
func (r *Registry) LookupBlob(h value.BlobDigest) (*value.Blob, bool) {
	b, ok := r.blobs[h]
	return b, ok
}
