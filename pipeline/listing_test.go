package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropmark/models"
)

const listingPage = `<html><head><title>wholesale desk lamp</title></head><body>
<script>
window.runParams = {
    mods: {
        itemList: {
            content: [
                {
                    productId: '1005001111111111',
                    title: { displayTitle: 'LED Desk Lamp Foldable' },
                    prices: { salePrice: { formattedPrice: 'US $10.00', currencyCode: 'USD' } },
                    image: { imgUrl: '//img.example-cdn.com/lamp1.jpg' },
                    store: { storeName: 'BrightHome Store', storeUrl: '//www.example.com/store/111' },
                    evaluation: { starRating: 4.7, starCount: 812 }
                },
                {
                    itemId: '1005002222222222',
                    title: 'Clip-On Reading Light',
                    salePrice: '€3,99',
                    image: '//img.example-cdn.com/lamp2.jpg'
                },
                {
                    id: '1005003333333333',
                    name: 'Desk Lamp Spare Shade',
                    price: 'price on request'
                },
                {
                    title: 'entry without any id is dropped'
                }
            ]
        }
    }
};
</script>
</body></html>`

func TestParseListingMapsItems(t *testing.T) {
	parser := NewListingParser("https://www.example.com", 5*time.Second, NewMarkupEngine(30))

	items := parser.ParseListing(listingPage)
	require.Len(t, items, 3, "id-less entries are dropped, everything else kept")

	first := items[0]
	assert.Equal(t, "1005001111111111", first.ID)
	assert.Equal(t, "LED Desk Lamp Foldable", first.Name)
	assert.InDelta(t, 12.99, first.Price, 0.001)
	assert.InDelta(t, 10.00, first.OriginalPrice, 0.001)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, "https://img.example-cdn.com/lamp1.jpg", first.Image)
	assert.Equal(t, "BrightHome Store", first.Seller.Name)
	assert.InDelta(t, 4.7, first.Rating.Average, 0.001)
	assert.Equal(t, 812, first.Rating.Count)

	second := items[1]
	assert.Equal(t, "1005002222222222", second.ID)
	assert.Equal(t, "Clip-On Reading Light", second.Name)
	assert.InDelta(t, 3.99, second.OriginalPrice, 0.001)
	assert.Equal(t, "EUR", second.Currency)

	// unparsable price is kept at zero rather than dropping the item
	third := items[2]
	assert.Equal(t, "1005003333333333", third.ID)
	assert.Zero(t, third.Price)
	assert.Zero(t, third.OriginalPrice)

	for _, item := range items {
		assert.GreaterOrEqual(t, item.Price, 0.0)
		assert.GreaterOrEqual(t, item.OriginalPrice, 0.0)
	}
}

func TestParseListingGarbageYieldsNothing(t *testing.T) {
	parser := NewListingParser("https://www.example.com", 5*time.Second, NewMarkupEngine(30))

	for _, body := range []string{
		"",
		"<html><body>nothing embedded here</body></html>",
		"window.runParams = {broken",
		`window.runParams = {"mods": {"itemList": {"content": []}}};`,
	} {
		assert.Empty(t, parser.ParseListing(body))
	}
}

func TestSearchAgainstListingEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wholesale", r.URL.Path)
		assert.Equal(t, "desk lamp", r.URL.Query().Get("SearchText"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "price_asc", r.URL.Query().Get("SortType"))
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	parser := NewListingParser(srv.URL, 5*time.Second, NewMarkupEngine(30))

	items := parser.Search(context.Background(), "desk lamp", models.SearchOptions{Page: 2, Sort: "price_asc"})
	require.Len(t, items, 3)
	assert.Equal(t, "1005001111111111", items[0].ID)
}

func TestSearchUnreachableHostYieldsNothing(t *testing.T) {
	parser := NewListingParser("http://127.0.0.1:1", 2*time.Second, NewMarkupEngine(30))

	items := parser.Search(context.Background(), "desk lamp", models.SearchOptions{})
	assert.Empty(t, items)
}
