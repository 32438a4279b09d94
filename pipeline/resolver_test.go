package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownURLShapes(t *testing.T) {
	resolver := NewIdentifierResolver()

	testCases := []struct {
		name      string
		reference string
		want      string
	}{
		{
			name:      "standard item path",
			reference: "https://example.com/item/1234567890.html",
			want:      "1234567890",
		},
		{
			name:      "short item path",
			reference: "https://example.com/i/1234567890.html",
			want:      "1234567890",
		},
		{
			name:      "alternate product path",
			reference: "https://example.com/product/4000123456789",
			want:      "4000123456789",
		},
		{
			name:      "item path wins over query string digits",
			reference: "https://www.aliexpress.com/item/4000123456789.html?spm=a2g0o.productlist.0.0.21345678abcd",
			want:      "4000123456789",
		},
		{
			name:      "known domain with digit run in query",
			reference: "https://aliexpress.com/some/path?productId=1005001234567890",
			want:      "1005001234567890",
		},
		{
			name:      "mobile short link token",
			reference: "https://a.aliexpress.com/_mKjR8sD",
			want:      "_mKjR8sD",
		},
		{
			name:      "bare numeric identifier",
			reference: "1005006789012345",
			want:      "1005006789012345",
		},
		{
			name:      "surrounding whitespace is trimmed",
			reference: "  https://example.com/item/1234567890.html  ",
			want:      "1234567890",
		},
		{
			name:      "last resort long digit run",
			reference: "some text mentioning 12345678901 somewhere",
			want:      "12345678901",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := resolver.Resolve(tc.reference)
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestResolveUnresolvableReferences(t *testing.T) {
	resolver := NewIdentifierResolver()

	for _, reference := range []string{
		"not-a-url",
		"",
		"   ",
		"https://example.com/about-us",
		"short digits 12345",
	} {
		t.Run(reference, func(t *testing.T) {
			_, err := resolver.Resolve(reference)
			assert.ErrorIs(t, err, ErrUnresolvableReference)
		})
	}
}
