package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Prefer holds preferences for the Prefer header (RFC 7240).
type Prefer struct {
	Return     string // "minimal", "representation", "headers-only"
	Count      string // "exact", "planned", "estimated"
	Resolution string // "merge-duplicates", "ignore-duplicates"
}

// String renders the header value, e.g. "return=representation, count=exact".
// Empty fields are omitted; a nil Prefer renders "".
func (p *Prefer) String() string {
	if p == nil {
		return ""
	}
	var parts []string
	if p.Return != "" {
		parts = append(parts, "return="+p.Return)
	}
	if p.Count != "" {
		parts = append(parts, "count="+p.Count)
	}
	if p.Resolution != "" {
		parts = append(parts, "resolution="+p.Resolution)
	}
	return strings.Join(parts, ", ")
}

// ParsePrefer parses a Prefer header. It returns nil if the header is empty.
// Unknown directives and invalid values are ignored.
func ParsePrefer(header string) *Prefer {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	p := &Prefer{}
	parseKeyValPairs(header, func(key, value string) {
		value = strings.ToLower(value)
		switch key {
		case "return":
			if isValidReturn(value) {
				p.Return = value
			}
		case "count":
			if isValidCount(value) {
				p.Count = value
			}
		case "resolution":
			if isValidResolution(value) {
				p.Resolution = value
			}
		}
	})

	return p
}

// parseKeyValPairs parses comma-separated preference directives.
// For each key=value pair found, it calls fn with the key and value.
func parseKeyValPairs(header string, fn func(key, value string)) {
	for pref := range strings.SplitSeq(header, ",") {
		pref = strings.TrimSpace(pref)
		if key, value, found := strings.Cut(pref, "="); found {
			key = strings.TrimSpace(strings.ToLower(key))
			value = strings.Trim(strings.TrimSpace(value), `"`)
			fn(key, value)
		}
	}
}

func isValidReturn(s string) bool {
	switch s {
	case "minimal", "representation", "headers-only":
		return true
	}
	return false
}

func isValidCount(s string) bool {
	switch s {
	case "exact", "planned", "estimated":
		return true
	}
	return false
}

func isValidResolution(s string) bool {
	return s == "merge-duplicates" || s == "ignore-duplicates"
}

// WantsRepresentation reports whether the response body should carry the
// affected rows.
func (p *Prefer) WantsRepresentation() bool {
	return p != nil && p.Return == "representation"
}

// WantsCountExact reports whether an exact count was requested.
func (p *Prefer) WantsCountExact() bool {
	return p != nil && p.Count == "exact"
}

// MergesDuplicates reports whether an insert upserts on primary key conflict.
func (p *Prefer) MergesDuplicates() bool {
	return p != nil && p.Resolution == "merge-duplicates"
}

// PreferenceApplied parses the Preference-Applied response header, in which
// PostgREST lists the preferences it honored. It returns nil when the header
// is absent, as with servers that predate it.
func PreferenceApplied(h http.Header) *Prefer {
	return ParsePrefer(h.Get("Preference-Applied"))
}

// checkApplied fails with ErrPreferenceIgnored when the server reported the
// preferences it applied and honored(applied) is false.
func checkApplied(h http.Header, want *Prefer, honored func(applied *Prefer) bool) error {
	applied := PreferenceApplied(h)
	if applied == nil || honored(applied) {
		return nil
	}
	return fmt.Errorf("%w: sent %q, applied %q", ErrPreferenceIgnored, want, applied)
}

// ContentRange is a parsed Content-Range response header such as "0-24/3573".
// Total is -1 when the server sent "*" for the total.
type ContentRange struct {
	First, Last int // -1 when the range is "*"
	Total       int
}

// ParseContentRange parses the Content-Range header PostgREST sends with
// Prefer: count=exact.
func ParseContentRange(h http.Header) (ContentRange, error) {
	raw := strings.TrimSpace(h.Get("Content-Range"))
	if raw == "" {
		return ContentRange{}, ErrMissingContentRange
	}
	raw = strings.TrimPrefix(raw, "items ")

	rng, total, ok := strings.Cut(raw, "/")
	if !ok {
		return ContentRange{}, fmt.Errorf("%w: %q", ErrMalformedContentRange, raw)
	}

	cr := ContentRange{First: -1, Last: -1, Total: -1}
	if total = strings.TrimSpace(total); total != "*" {
		n, err := strconv.Atoi(total)
		if err != nil || n < 0 {
			return ContentRange{}, fmt.Errorf("%w: %q", ErrMalformedContentRange, raw)
		}
		cr.Total = n
	}

	if rng = strings.TrimSpace(rng); rng != "*" {
		first, last, ok := strings.Cut(rng, "-")
		if !ok {
			return ContentRange{}, fmt.Errorf("%w: %q", ErrMalformedContentRange, raw)
		}
		var err1, err2 error
		cr.First, err1 = strconv.Atoi(first)
		cr.Last, err2 = strconv.Atoi(last)
		if err1 != nil || err2 != nil {
			return ContentRange{}, fmt.Errorf("%w: %q", ErrMalformedContentRange, raw)
		}
	}

	return cr, nil
}
