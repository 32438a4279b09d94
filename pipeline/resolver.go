package pipeline

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnresolvableReference is returned when no product identifier can be
// derived from the input reference
var ErrUnresolvableReference = errors.New("no product identifier could be derived from reference")

// referencePattern is one URL shape tried against a product reference
type referencePattern struct {
	name string
	re   *regexp.Regexp
}

// IdentifierResolver turns a free-form product reference (URL or bare id)
// into a canonical product identifier
type IdentifierResolver struct {
	bareID   *regexp.Regexp
	patterns []referencePattern
	digitRun *regexp.Regexp
}

// NewIdentifierResolver creates a resolver with the known URL shapes.
// Patterns are tried in order; the specific path shapes take precedence
// over the generic digit-run fallback so an unrelated numeric substring
// in the URL cannot win.
func NewIdentifierResolver() *IdentifierResolver {
	return &IdentifierResolver{
		bareID: regexp.MustCompile(`^[0-9]{6,}$`),
		patterns: []referencePattern{
			{"item_path", regexp.MustCompile(`/item/([0-9]+)\.html`)},
			{"short_item_path", regexp.MustCompile(`/i/([0-9]+)\.html`)},
			{"product_path", regexp.MustCompile(`/product/([0-9]+)`)},
			{"known_domain_digits", regexp.MustCompile(`(?i)(?:aliexpress|alibaba)\.[a-z.]{2,6}/[^\s]*?([0-9]{10,})`)},
			{"mobile_short_link", regexp.MustCompile(`(?i)aliexpress\.[a-z.]{2,6}/e?/?(_[A-Za-z0-9]+)`)},
		},
		digitRun: regexp.MustCompile(`[0-9]{10,}`),
	}
}

// Resolve returns the canonical product identifier for a reference.
// The returned id is numeric for page URLs and opaque (token) for mobile
// short links. Fails with ErrUnresolvableReference, never panics.
func (r *IdentifierResolver) Resolve(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", ErrUnresolvableReference
	}

	// Bare numeric identifier, no URL to parse
	if r.bareID.MatchString(reference) {
		return reference, nil
	}

	for _, pattern := range r.patterns {
		if matches := pattern.re.FindStringSubmatch(reference); matches != nil && matches[1] != "" {
			return matches[1], nil
		}
	}

	// Last resort: any long digit run anywhere in the string
	if id := r.digitRun.FindString(reference); id != "" {
		return id, nil
	}

	return "", ErrUnresolvableReference
}
