package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dropmark/models"
)

// DOMExtractor pulls product data out of presentation markup when no
// structured payload is available. Lower confidence than the structured
// path, but it always produces a best-effort result.
type DOMExtractor struct {
	assetHost        string
	titleSelectors   []string
	priceSelectors   []string
	sellerSelectors  []string
	gallerySelectors []string
	siteSuffixRe     *regexp.Regexp
	numericRunRe     *regexp.Regexp
	placeholderRe    *regexp.Regexp
}

// NewDOMExtractor creates a DOM extractor. assetHost identifies the site's
// image CDN for the broadened gallery search.
func NewDOMExtractor(assetHost string) *DOMExtractor {
	return &DOMExtractor{
		assetHost: assetHost,
		titleSelectors: []string{
			"h1[data-pl='product-title']",
			"h1.product-title-text",
			".product-title h1",
			"#j-product-title",
		},
		priceSelectors: []string{
			".product-price-value",
			"span[itemprop='price']",
			".uniform-banner-box-price",
			".p-price",
		},
		sellerSelectors: []string{
			"a[data-pl='store-name']",
			".shop-name a",
			".store-name",
		},
		gallerySelectors: []string{
			".images-view-list img",
			".image-gallery img",
			"ul.image-nav img",
		},
		siteSuffixRe:  regexp.MustCompile(`(?i)\s*[-|]\s*aliexpress.*$`),
		numericRunRe:  regexp.MustCompile(`[0-9][0-9.,\x{00a0} ]*`),
		placeholderRe: regexp.MustCompile(`(?i)(placeholder|blank|sprite|icon|loading|1x1|spacer)`),
	}
}

// Extract returns DOM-derived product data. Never nil: missing fields come
// back empty or zero rather than failing the extraction.
func (e *DOMExtractor) Extract(body string) *models.IntermediateProductData {
	data := &models.IntermediateProductData{Confidence: models.ConfidenceDOM}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return data
	}

	data.Name = e.firstText(doc, e.titleSelectors)
	if data.Name == "" {
		// Document title with the site-name suffix stripped
		data.Name = strings.TrimSpace(e.siteSuffixRe.ReplaceAllString(doc.Find("title").First().Text(), ""))
	}

	data.PriceText = e.firstText(doc, e.priceSelectors)
	data.Seller = models.SellerInfo{Name: e.firstText(doc, e.sellerSelectors)}
	for _, selector := range e.sellerSelectors {
		if href, ok := doc.Find(selector).First().Attr("href"); ok && href != "" {
			data.Seller.URL = normalizeImageURL(href)
			break
		}
	}

	data.Images = e.extractImages(doc)

	if avgText := doc.Find(".overview-rating-average").First().Text(); avgText != "" {
		if avg, err := strconv.ParseFloat(strings.TrimSpace(avgText), 64); err == nil {
			data.Rating.Average = avg
		}
	}
	if countText := doc.Find(".product-reviewer-reviews").First().Text(); countText != "" {
		if run := regexp.MustCompile(`[0-9]+`).FindString(countText); run != "" {
			data.Rating.Count, _ = strconv.Atoi(run)
		}
	}

	return data
}

// ExtractNumericPrice parses the first numeric run out of matched price text,
// stripping grouping separators
func (e *DOMExtractor) ExtractNumericPrice(priceText string) float64 {
	run := e.numericRunRe.FindString(priceText)
	if run == "" {
		return 0
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ':
			return -1
		}
		return r
	}, run)

	// A comma followed by exactly two digits at the end is a decimal
	// separator, anything else is grouping
	if idx := strings.LastIndex(cleaned, ","); idx >= 0 && len(cleaned)-idx == 3 && !strings.Contains(cleaned[idx:], ".") {
		// European decimal comma; earlier dots are grouping
		cleaned = strings.ReplaceAll(cleaned[:idx], ".", "") + "." + cleaned[idx+1:]
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	value, err := strconv.ParseFloat(strings.TrimRight(cleaned, "."), 64)
	if err != nil {
		return 0
	}
	return value
}

// firstText returns the first non-empty text match in an ordered selector list
func (e *DOMExtractor) firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// extractImages collects gallery image URLs, filtering placeholder assets
// and de-duplicating. If the gallery selectors find nothing, the search
// broadens to any image hosted on the asset CDN with non-empty alt text.
func (e *DOMExtractor) extractImages(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var images []string

	collect := func(sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			src, _ = sel.Attr("data-src")
		}
		if src == "" || e.placeholderRe.MatchString(src) {
			return
		}
		src = normalizeImageURL(src)
		if !seen[src] {
			seen[src] = true
			images = append(images, src)
		}
	}

	for _, selector := range e.gallerySelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			collect(sel)
		})
		if len(images) > 0 {
			return images
		}
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		alt, _ := sel.Attr("alt")
		if strings.Contains(src, e.assetHost) && strings.TrimSpace(alt) != "" {
			collect(sel)
		}
	})

	return images
}
