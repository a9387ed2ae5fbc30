// Package oid resolves PostgreSQL object identifiers to display names.
//
// Lock events carry the OID of the locked relation. A [Resolver] turns it
// into a schema-qualified name such as public.sensor_data. Resolvers never
// fail: an OID that cannot be resolved, because it is unknown or because
// the catalog is unreachable, yields the [Placeholder] "Oid N". Callers can
// therefore treat resolution as a pure function for the length of a
// session.
//
// [Catalog] resolves against a live database with pgx. It warms its
// in-memory map from pg_class when it connects, because objects dropped
// later in the trace can no longer be looked up, and shares what it learns
// through a [cache.Cache].
package oid

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/pglocktrace/pkg/errors"
)

// Resolver maps OIDs to display names.
type Resolver interface {
	Resolve(ctx context.Context, oid uint32) string
}

// ResolverFunc adapts a function to a [Resolver].
type ResolverFunc func(ctx context.Context, oid uint32) string

// Resolve calls f(ctx, oid).
func (f ResolverFunc) Resolve(ctx context.Context, oid uint32) string { return f(ctx, oid) }

// Placeholder returns the name used for OIDs that cannot be resolved.
func Placeholder(oid uint32) string {
	return "Oid " + strconv.FormatUint(uint64(oid), 10)
}

// Static resolves from a fixed map.
type Static map[uint32]string

// Resolve returns the mapped name or the placeholder.
func (s Static) Resolve(_ context.Context, oid uint32) string {
	if name, ok := s[oid]; ok {
		return name
	}
	return Placeholder(oid)
}

// Spec binds a database URL to the backend pid whose OIDs it resolves.
type Spec struct {
	Pid int
	URL string
}

// ParseSpec parses a resolver given as PID:URL, for example
// 1234:postgres://localhost/app.
func ParseSpec(s string) (Spec, error) {
	pidPart, url, ok := strings.Cut(s, ":")
	if !ok {
		return Spec{}, errors.New(errors.ErrCodeInvalidResolver, "resolver must be given as PID:URL, got %q", s)
	}
	pid, err := strconv.Atoi(pidPart)
	if err != nil || pid <= 0 {
		return Spec{}, errors.New(errors.ErrCodeInvalidResolver, "invalid pid %q in resolver", pidPart)
	}
	if err := errors.ValidateDatabaseURL(url); err != nil {
		return Spec{}, err
	}
	return Spec{Pid: pid, URL: url}, nil
}

// ParseSpecs parses every resolver and checks that each pid is traced.
// An empty traced list accepts any pid.
func ParseSpecs(specs []string, traced []int) ([]Spec, error) {
	out := make([]Spec, 0, len(specs))
	seen := make(map[int]bool, len(specs))
	for _, s := range specs {
		spec, err := ParseSpec(s)
		if err != nil {
			return nil, err
		}
		if len(traced) > 0 && !slices.Contains(traced, spec.Pid) {
			return nil, errors.New(errors.ErrCodeInvalidResolver, "pid %d of resolver is not traced", spec.Pid)
		}
		if seen[spec.Pid] {
			return nil, errors.New(errors.ErrCodeInvalidResolver, "duplicate resolver for pid %d", spec.Pid)
		}
		seen[spec.Pid] = true
		out = append(out, spec)
	}
	return out, nil
}
