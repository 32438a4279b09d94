package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropmark/models"
)

const runParamsPage = `<!DOCTYPE html>
<html><head><title>Wireless Earbuds Pro - AliExpress</title></head><body>
<script>
window.runParams = {
	data: {
		titleModule: {
			subject: 'Wireless Earbuds Pro',
			feedbackRating: { averageStar: 4.7, totalValidNum: 1523 }
		},
		priceModule: {
			formatedActivityPrice: 'US $12.34',
			currencyCode: 'USD'
		},
		imageModule: {
			imagePathList: ['//ae01.alicdn.com/kf/front.jpg', '//ae01.alicdn.com/kf/side.jpg']
		},
		skuModule: {
			productSKUPropertyList: [
				{
					skuPropertyName: 'Color',
					skuPropertyValues: [
						{ propertyValueDisplayName: 'Black', skuPropertyImagePath: '//ae01.alicdn.com/kf/black.jpg' },
						{ propertyValueDisplayName: 'White' }
					]
				}
			]
		},
		storeModule: { storeName: 'TechGear Store', storeURL: '//www.aliexpress.com/store/912345' },
		extraField: undefined
	}
};
</script>
</body></html>`

func TestStructuredExtractRunParams(t *testing.T) {
	extractor := NewStructuredExtractor()

	data := extractor.Extract(runParamsPage)
	require.NotNil(t, data)

	assert.Equal(t, models.ConfidenceStructured, data.Confidence)
	assert.Equal(t, "Wireless Earbuds Pro", data.Name)
	assert.Equal(t, "US $12.34", data.PriceText)
	assert.Equal(t, "USD", data.Currency)

	assert.Equal(t, []string{
		"https://ae01.alicdn.com/kf/front.jpg",
		"https://ae01.alicdn.com/kf/side.jpg",
	}, data.Images)

	require.Len(t, data.Variants, 2)
	assert.Equal(t, models.Variant{Name: "Color", Value: "Black", Image: "https://ae01.alicdn.com/kf/black.jpg"}, data.Variants[0])
	assert.Equal(t, "White", data.Variants[1].Value)

	assert.Equal(t, "TechGear Store", data.Seller.Name)
	assert.Equal(t, "https://www.aliexpress.com/store/912345", data.Seller.URL)

	assert.InDelta(t, 4.7, data.Rating.Average, 0.001)
	assert.Equal(t, 1523, data.Rating.Count)
}

func TestStructuredExtractAERData(t *testing.T) {
	page := `<html><body>
<script id="__AER_DATA__" type="application/json">
{"data":{"root":{"fields":{"title":"Smart Watch Series 9","formatedPrice":"29,99","currencyCode":"EUR","imagePathList":["//cdn.example.com/watch.jpg"]}}}}
</script>
</body></html>`

	data := NewStructuredExtractor().Extract(page)
	require.NotNil(t, data)

	assert.Equal(t, "Smart Watch Series 9", data.Name)
	assert.Equal(t, "29,99", data.PriceText)
	assert.Equal(t, "EUR", data.Currency)
	assert.Equal(t, []string{"https://cdn.example.com/watch.jpg"}, data.Images)
}

func TestStructuredExtractMissingPriceStaysEmpty(t *testing.T) {
	page := `<script>window.runParams = { data: { subject: "Mystery Gadget" } };</script>`

	data := NewStructuredExtractor().Extract(page)
	require.NotNil(t, data)

	assert.Equal(t, "Mystery Gadget", data.Name)
	// Zero/empty price is the downstream floor-policy signal
	assert.Empty(t, data.PriceText)
}

func TestStructuredExtractNumericOnlyPrice(t *testing.T) {
	page := `<script>window.runParams = { data: { subject: "Plain Item", priceModule: { minActivityAmount: { value: 8.5 } } } };</script>`

	data := NewStructuredExtractor().Extract(page)
	require.NotNil(t, data)
	assert.Equal(t, "8.50", data.PriceText)
}

func TestStructuredExtractNoPayload(t *testing.T) {
	assert.Nil(t, NewStructuredExtractor().Extract("<html><body><h1>hello</h1></body></html>"))
}

func TestStructuredExtractTitlelessPayload(t *testing.T) {
	page := `<script>window.runParams = { data: { priceModule: { formatedPrice: "US $4.99" } } };</script>`
	assert.Nil(t, NewStructuredExtractor().Extract(page))
}

func TestParseLooseRepairs(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"unquoted keys", `{foo: "bar", nested: {baz: 1}}`},
		{"single quotes", `{"foo": 'bar'}`},
		{"undefined literal", `{"foo": undefined, "ok": 2}`},
		{"NaN literal", `{"foo": NaN}`},
		{"trailing comma", `{"foo": "bar",}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := parseLoose(tc.raw)
			require.NoError(t, err)
			assert.NotNil(t, payload)
		})
	}
}

func TestExtractObjectAfterBalancesBraces(t *testing.T) {
	body := `prefix window.runParams = {"a": {"b": "}"}, "c": 1}; trailing {junk}`

	raw, ok := extractObjectAfter(body, "window.runParams")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": "}"}, "c": 1}`, raw)

	_, ok = extractObjectAfter(body, "window.__INIT_DATA__")
	assert.False(t, ok)
}
