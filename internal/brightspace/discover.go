package brightspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ProductVersions lists the API versions a tenant serves for one product code.
type ProductVersions struct {
	ProductCode       string   `json:"ProductCode"`
	LatestVersion     string   `json:"LatestVersion"`
	SupportedVersions []string `json:"SupportedVersions"`
}

// DiscoverVersions queries the tenant's version catalogue. Supported versions
// are ordered newest first; strings that are not versions sort last in their
// original order.
func (s *Session) DiscoverVersions(ctx context.Context) ([]ProductVersions, error) {
	resp, err := s.Do(ctx, Request{Method: http.MethodGet, Path: APIRoot + "/versions/", ExpectStructured: true})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &RemoteError{Op: "discover_versions", StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if resp.Body.Kind() != BodyStructured {
		return nil, &BodyMismatchError{Op: "discover_versions", Want: BodyStructured, Got: resp.Body.Kind()}
	}

	var products []ProductVersions
	if err := json.Unmarshal(resp.Body.Raw(), &products); err != nil {
		return nil, fmt.Errorf("failed to decode version catalogue: %w", err)
	}
	for i := range products {
		products[i].ProductCode = strings.ToLower(products[i].ProductCode)
		products[i].SupportedVersions = SortVersions(products[i].SupportedVersions)
	}
	return products, nil
}

// VersionsFor returns the supported versions of family, newest first, or nil
// when the catalogue does not mention it.
func VersionsFor(products []ProductVersions, family Family) []string {
	for _, p := range products {
		if p.ProductCode == string(family) {
			return p.SupportedVersions
		}
	}
	return nil
}

// SortVersions returns a copy of versions ordered newest first.
func SortVersions(versions []string) []string {
	type entry struct {
		raw    string
		parsed *semver.Version
	}
	entries := make([]entry, 0, len(versions))
	for _, v := range versions {
		parsed, err := semver.NewVersion(v)
		if err != nil {
			parsed = nil
		}
		entries = append(entries, entry{raw: v, parsed: parsed})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].parsed, entries[j].parsed
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.GreaterThan(b)
		}
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.raw
	}
	return out
}
