package pipeline

import (
	"encoding/json"
	"log"
	"regexp"
	"strconv"
	"strings"

	"dropmark/models"
)

// payloadFormat is one historical shape of the script-embedded product blob.
// The source has shipped at least four incompatible generations of it.
type payloadFormat struct {
	name   string
	marker string
}

// StructuredExtractor locates and parses the script-embedded product payload
// inside fetched markup
type StructuredExtractor struct {
	formats      []payloadFormat
	productPaths [][]string
}

// NewStructuredExtractor creates an extractor covering the known payload formats
func NewStructuredExtractor() *StructuredExtractor {
	return &StructuredExtractor{
		formats: []payloadFormat{
			{"run_params", "window.runParams"},
			{"init_data", "window.__INIT_DATA__"},
			{"dc_data", "window._d_c_.DCData"},
			{"aer_data", "__AER_DATA__"},
		},
		// The product sub-object moves around between payload generations
		productPaths: [][]string{
			{"data", "root", "fields"},
			{"data"},
			{"detailData"},
			{"result"},
			{}, // payload root itself
		},
	}
}

// Extract returns structured product data from raw HTML, or nil when no
// payload marker yields a parseable blob with a usable product title
func (e *StructuredExtractor) Extract(body string) *models.IntermediateProductData {
	for _, format := range e.formats {
		raw, ok := extractObjectAfter(body, format.marker)
		if !ok {
			continue
		}

		payload, err := parseLoose(raw)
		if err != nil {
			log.Printf("Payload %s found but unparseable: %v", format.name, err)
			continue
		}

		if data := e.extractFields(payload); data.HasName() {
			return data
		}
	}

	return nil
}

// extractFields pulls the product fields out of a parsed payload
func (e *StructuredExtractor) extractFields(payload map[string]interface{}) *models.IntermediateProductData {
	product := payload
	for _, path := range e.productPaths {
		if len(path) == 0 {
			break
		}
		if m, ok := firstMap(payload, [][]string{path}); ok {
			product = m
			break
		}
	}

	data := &models.IntermediateProductData{
		Confidence: models.ConfidenceStructured,
		Name: pickStringPath(product,
			"subject", "title", "name",
			"titleModule.subject", "productInfoComponent.subject", "pageModule.title"),
		Description: pickStringPath(product,
			"description", "desc",
			"metaDataModule.description", "pageModule.description"),
		PriceText: pickStringPath(product,
			"formatedActivityPrice", "formatedPrice", "salePrice", "price",
			"priceModule.formatedActivityPrice", "priceModule.formatedPrice",
			"priceComponent.discountPrice.formatedAmount"),
		Currency: pickStringPath(product,
			"currencyCode", "currency",
			"priceModule.currencyCode", "commonModule.currencyCode"),
	}

	// Some generations carry only a numeric amount, no display text.
	// A missing price stays empty here: zero is the downstream signal
	// for the floor policy, not a value to default to.
	if data.PriceText == "" {
		if amount := pickFloatPath(product,
			"priceModule.minActivityAmount.value", "priceModule.minAmount.value",
			"salePrice.value", "priceComponent.discountPrice.minActivityAmount.value"); amount > 0 {
			data.PriceText = strconv.FormatFloat(amount, 'f', 2, 64)
		}
	}

	if images, ok := firstSlice(product, [][]string{
		{"imageModule", "imagePathList"},
		{"imagePathList"},
		{"images"},
		{"imageList"},
	}); ok {
		for _, img := range images {
			if src := toString(img); src != "" {
				data.Images = append(data.Images, normalizeImageURL(src))
			}
		}
	}

	data.Variants = extractVariants(product)

	data.Seller = models.SellerInfo{
		Name: pickStringPath(product,
			"storeModule.storeName", "sellerModule.storeName", "storeName", "sellerName"),
		URL: normalizeImageURL(pickStringPath(product,
			"storeModule.storeURL", "storeURL", "storeUrl")),
	}

	data.Rating = models.RatingInfo{
		Average: pickFloatPath(product,
			"titleModule.feedbackRating.averageStar", "feedbackRating.averageStar",
			"averageStar", "rating"),
		Count: int(pickFloatPath(product,
			"titleModule.feedbackRating.totalValidNum", "feedbackRating.totalValidNum",
			"totalValidNum", "ratingCount")),
	}

	data.Shipping = models.ShippingInfo{
		Summary: pickStringPath(product,
			"freightInfo.deliveryText", "shippingModule.deliveryText", "deliveryInfo"),
		Cost: pickFloatPath(product,
			"freightInfo.freightAmount.value", "shippingModule.freightAmount.value", "shippingFee"),
	}

	return data
}

// extractVariants flattens the SKU property tree into a variant list
func extractVariants(product map[string]interface{}) []models.Variant {
	props, ok := firstSlice(product, [][]string{
		{"skuModule", "productSKUPropertyList"},
		{"skuPropertyList"},
		{"variants"},
		{"props"},
	})
	if !ok {
		return nil
	}

	var variants []models.Variant
	for _, p := range props {
		prop, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		propName := pickString(prop, "skuPropertyName", "name")

		values, ok := firstSlice(prop, [][]string{{"skuPropertyValues"}, {"values"}})
		if !ok {
			continue
		}
		for _, v := range values {
			value, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			variants = append(variants, models.Variant{
				Name:  propName,
				Value: pickString(value, "propertyValueDisplayName", "propertyValueName", "name", "value"),
				Image: normalizeImageURL(pickString(value, "skuPropertyImagePath", "image")),
			})
		}
	}

	return variants
}

// extractObjectAfter finds the first balanced {...} object following a marker.
// String literals and escapes are respected so braces inside values do not
// unbalance the scan.
func extractObjectAfter(body, marker string) (string, bool) {
	idx := strings.Index(body, marker)
	if idx < 0 {
		return "", false
	}

	start := strings.IndexByte(body[idx:], '{')
	if start < 0 {
		return "", false
	}
	start += idx

	depth := 0
	inString := false
	var quote byte
	escaped := false

	for i := start; i < len(body); i++ {
		c := body[i]

		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == quote {
				inString = false
			}
			continue
		}

		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return body[start : i+1], true
			}
		}
	}

	return "", false
}

var (
	unquotedKeyRe  = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$]*)\s*:`)
	singleQuoteRe  = regexp.MustCompile(`'([^'\\]*)'`)
	badLiteralRe   = regexp.MustCompile(`\b(undefined|NaN)\b`)
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
)

// parseLoose parses a script-embedded object that is almost, but not quite,
// JSON. It tries the raw text first, then applies a bounded set of textual
// repairs: quoting bare keys, rewriting single-quoted strings, replacing
// unparsable literals, and dropping trailing commas.
func parseLoose(raw string) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return payload, nil
	}

	repaired := singleQuoteRe.ReplaceAllString(raw, `"$1"`)
	repaired = unquotedKeyRe.ReplaceAllString(repaired, `$1"$2":`)
	repaired = badLiteralRe.ReplaceAllString(repaired, "null")
	repaired = trailingComma.ReplaceAllString(repaired, "$1")

	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
