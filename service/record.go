package service

import "github.com/nabbar/abel/source"

// Record is the immutable bundle produced by the lifecycle engine's
// prepare pass. Once constructed it is never mutated; replacement always
// builds a new Record.
type Record struct {
	name   string
	uuid   UUID
	paths  []*Matcher
	src    source.Source
	pkgNam string
	pkgDsc string
}

// NewRecord constructs an immutable Record. name must already have passed
// ValidateName; paths must already be compiled.
func NewRecord(name string, id UUID, paths []*Matcher, src source.Source, pkgName, pkgDesc string) *Record {
	cp := make([]*Matcher, len(paths))
	copy(cp, paths)

	return &Record{
		name:   name,
		uuid:   id,
		paths:  cp,
		src:    src,
		pkgNam: pkgName,
		pkgDsc: pkgDesc,
	}
}

func (r *Record) Name() string          { return r.name }
func (r *Record) UUID() UUID            { return r.uuid }
func (r *Record) Paths() []*Matcher     { return r.paths }
func (r *Record) Source() source.Source { return r.src }
func (r *Record) PackageName() string   { return r.pkgNam }
func (r *Record) PackageDesc() string   { return r.pkgDsc }

// Match finds the first matcher whose pattern matches sub-path, returning
// the matched matcher and extracted params.
func (r *Record) Match(subPath string) (*Matcher, map[string]string, bool) {
	for _, m := range r.paths {
		if params, ok := m.Match(subPath); ok {
			return m, params, true
		}
	}
	return nil, nil, false
}

// WithUUID returns a shallow copy of r with a different uuid, used by
// hot_update/cold_update when the caller overrides uuid preservation.
func (r *Record) WithUUID(id UUID) *Record {
	n := *r
	n.uuid = id
	return &n
}
