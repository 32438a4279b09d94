package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dropmark/models"
)

// ListingParser handles keyword search against the source's listing pages.
// It never fails: unreachable or unparseable listing pages yield an empty
// result set.
type ListingParser struct {
	client     *http.Client
	searchBase string // https://<host>/wholesale
	timeout    time.Duration
	normalizer *PriceNormalizer
	markup     *MarkupEngine
	itemPaths  [][]string
}

// NewListingParser creates a parser fetching from the given base URL
// (scheme + host of the primary mirror)
func NewListingParser(baseURL string, timeout time.Duration, markup *MarkupEngine) *ListingParser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ListingParser{
		client:     &http.Client{},
		searchBase: strings.TrimRight(baseURL, "/") + "/wholesale",
		timeout:    timeout,
		normalizer: NewPriceNormalizer(),
		markup:     markup,
		// The item array sits under the catalog module, whose path has
		// shifted between payload generations
		itemPaths: [][]string{
			{"data", "root", "fields", "mods", "itemList", "content"},
			{"mods", "itemList", "content"},
			{"data", "items"},
			{"items"},
		},
	}
}

// Search fetches one listing page for the keyword and maps each embedded
// item into a summary record. Empty slice on any failure.
func (lp *ListingParser) Search(ctx context.Context, keyword string, opts models.SearchOptions) []models.SearchResultItem {
	body, err := lp.fetchListing(ctx, keyword, opts)
	if err != nil {
		log.Printf("Listing fetch failed for %q: %v", keyword, err)
		return nil
	}

	return lp.ParseListing(body)
}

// ParseListing extracts search result items from raw listing markup
func (lp *ListingParser) ParseListing(body string) []models.SearchResultItem {
	for _, marker := range []string{"window.runParams", "window.__INIT_DATA__", "_init_data_", "__AER_DATA__"} {
		raw, ok := extractObjectAfter(body, marker)
		if !ok {
			continue
		}

		payload, err := parseLoose(raw)
		if err != nil {
			continue
		}

		items, ok := firstSlice(payload, lp.itemPaths)
		if !ok {
			continue
		}

		var results []models.SearchResultItem
		for _, entry := range items {
			item, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if result, ok := lp.mapItem(item); ok {
				results = append(results, result)
			}
		}
		if len(results) > 0 {
			return results
		}
	}

	return nil
}

// mapItem converts one raw listing entry into a SearchResultItem.
// Missing fields default to empty/zero rather than dropping the item,
// except for the id, without which the item is useless.
func (lp *ListingParser) mapItem(item map[string]interface{}) (models.SearchResultItem, bool) {
	id := pickString(item, "productId", "itemId", "id")
	if id == "" {
		return models.SearchResultItem{}, false
	}

	priceText := pickStringPath(item,
		"prices.salePrice.formattedPrice", "prices.salePrice.minPrice",
		"salePrice", "price", "formattedPrice")
	original, currency := lp.normalizer.Parse(priceText)
	if currency == "" {
		currency = pickStringPath(item, "prices.salePrice.currencyCode", "currency", "currencyCode")
	}

	retail := lp.markup.Retail(original)
	if original <= 0 {
		retail = 0
		original = 0
	}

	result := models.SearchResultItem{
		ID:            id,
		Name:          pickStringPath(item, "title.displayTitle", "title", "subject", "name"),
		Price:         retail,
		OriginalPrice: original,
		Currency:      currency,
		Image:         normalizeImageURL(pickStringPath(item, "image.imgUrl", "image", "imageUrl", "img")),
		Shipping: models.ShippingInfo{
			Summary: pickStringPath(item, "sellingPoints.logistics.text", "logisticsDesc", "shipping"),
		},
		Seller: models.SellerInfo{
			Name: pickStringPath(item, "store.storeName", "storeName", "sellerName"),
			URL:  normalizeImageURL(pickStringPath(item, "store.storeUrl", "storeUrl")),
		},
		Rating: models.RatingInfo{
			Average: pickFloatPath(item, "evaluation.starRating", "averageStar", "rating"),
			Count:   int(pickFloatPath(item, "evaluation.starCount", "totalValidNum", "ratingCount")),
		},
	}

	return result, true
}

// fetchListing retrieves a single listing page for the keyword/page/sort
// combination
func (lp *ListingParser) fetchListing(ctx context.Context, keyword string, opts models.SearchOptions) (string, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("SearchText", keyword)
	params.Set("page", fmt.Sprintf("%d", page))
	if opts.Sort != "" {
		params.Set("SortType", opts.Sort)
	}
	if opts.Locale != "" {
		params.Set("locale", opts.Locale)
	}
	if opts.Currency != "" {
		params.Set("currency", opts.Currency)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, lp.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, lp.searchBase+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := lp.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("listing page returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %v", err)
	}

	return string(body), nil
}
