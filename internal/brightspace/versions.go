package brightspace

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Family names one of the independently versioned Valence API surfaces.
type Family string

const (
	// FamilyLP is the Learning Platform surface (users, org structure, enrollments).
	FamilyLP Family = "lp"
	// FamilyLE is the Learning Environment surface (content, news, grades, quizzes).
	FamilyLE Family = "le"
)

// APIRoot prefixes every versioned route.
const APIRoot = "/d2l/api"

// ParseFamily accepts "lp" or "le" in any case.
func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case FamilyLP, FamilyLE:
		return f, nil
	default:
		return "", invalidArgument("unknown API family %q, expected lp or le", s)
	}
}

// BuildPath returns <APIRoot>/<family>/<version><tail>. A tail without a
// leading slash gets one.
func BuildPath(family Family, version, tail string) string {
	if !strings.HasPrefix(tail, "/") {
		tail = "/" + tail
	}
	return fmt.Sprintf("%s/%s/%s%s", APIRoot, family, version, tail)
}

// Path builds a route for family using version, or the session's default
// version for the family when version is empty.
func (s *Session) Path(family Family, tail, version string) string {
	if version == "" {
		version = s.DefaultVersion(family)
	}
	return BuildPath(family, version, tail)
}

// DefaultVersion returns the configured default version of family.
func (s *Session) DefaultVersion(family Family) string {
	if family == FamilyLE {
		return s.leVersion
	}
	return s.lpVersion
}

// Candidates returns the ordered versions Dispatch tries for family: the
// default first, then extra, or the configured candidates when extra is
// empty. Duplicates keep their first position.
func (s *Session) Candidates(family Family, extra []string) []string {
	rest := cleanVersions(extra)
	if len(rest) == 0 {
		rest = s.lpCandidates
		if family == FamilyLE {
			rest = s.leCandidates
		}
	}

	out := make([]string, 0, len(rest)+1)
	seen := make(map[string]bool, len(rest)+1)
	for _, v := range append([]string{s.DefaultVersion(family)}, rest...) {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// isVersionMiss reports statuses that mean the version is not served by this tenant.
func isVersionMiss(status int) bool {
	return status == http.StatusNotFound || status == http.StatusGone
}

// Dispatch sends req, whose Path is a family-relative tail, once per
// candidate version until a response other than 404 or 410 arrives.
//
// When every candidate misses, the last response is returned as is. A 404
// from Dispatch therefore does not distinguish an absent resource from a
// tenant serving none of the candidate versions.
func (s *Session) Dispatch(ctx context.Context, family Family, req Request, versions []string) (*Response, error) {
	if family != FamilyLP && family != FamilyLE {
		return nil, invalidArgument("unknown API family %q", family)
	}
	tail := req.Path

	var last *Response
	for _, version := range s.Candidates(family, versions) {
		attempt := req
		attempt.Path = BuildPath(family, version, tail)

		resp, err := s.Do(ctx, attempt)
		if err != nil {
			return nil, err
		}
		if !isVersionMiss(resp.StatusCode) {
			return resp, nil
		}
		s.logger.Debug("%s %s: version %s answered %d, trying next", family, tail, version, resp.StatusCode)
		last = resp
	}
	return last, nil
}

// LP dispatches a Learning Platform call across the configured versions.
func (s *Session) LP(ctx context.Context, req Request, versions ...string) (*Response, error) {
	return s.Dispatch(ctx, FamilyLP, req, versions)
}

// LE dispatches a Learning Environment call across the configured versions.
func (s *Session) LE(ctx context.Context, req Request, versions ...string) (*Response, error) {
	return s.Dispatch(ctx, FamilyLE, req, versions)
}
