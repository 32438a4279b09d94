package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropmark/models"
)

const domOnlyPage = `<!DOCTYPE html>
<html>
<head><title>Ceramic Coffee Mug 350ml - AliExpress 7</title></head>
<body>
	<h1 class="product-title-text">Ceramic Coffee Mug 350ml</h1>
	<div class="product-price-value">US $8.99</div>
	<div class="shop-name"><a href="//www.aliexpress.com/store/5551">HomeWare Direct</a></div>
	<div class="overview-rating-average">4.8</div>
	<div class="product-reviewer-reviews">231 Reviews</div>
	<ul class="images-view-list">
		<li><img src="//ae01.alicdn.com/kf/mug1.jpg" alt="mug front"></li>
		<li><img src="//ae01.alicdn.com/kf/mug2.jpg" alt="mug side"></li>
		<li><img src="//ae01.alicdn.com/kf/mug1.jpg" alt="duplicate"></li>
		<li><img src="//assets.example.com/placeholder.png" alt="loading"></li>
	</ul>
</body>
</html>`

func TestDOMExtractFullPage(t *testing.T) {
	extractor := NewDOMExtractor("alicdn.com")

	data := extractor.Extract(domOnlyPage)
	require.NotNil(t, data)

	assert.Equal(t, models.ConfidenceDOM, data.Confidence)
	assert.Equal(t, "Ceramic Coffee Mug 350ml", data.Name)
	assert.Equal(t, "US $8.99", data.PriceText)
	assert.Equal(t, "HomeWare Direct", data.Seller.Name)

	// Placeholder filtered, duplicate removed
	assert.Equal(t, []string{
		"https://ae01.alicdn.com/kf/mug1.jpg",
		"https://ae01.alicdn.com/kf/mug2.jpg",
	}, data.Images)

	assert.InDelta(t, 4.8, data.Rating.Average, 0.001)
	assert.Equal(t, 231, data.Rating.Count)
}

func TestDOMExtractTitleFallsBackToDocumentTitle(t *testing.T) {
	page := `<html><head><title>Folding Umbrella - AliExpress 8</title></head><body><p>nothing here</p></body></html>`

	data := NewDOMExtractor("alicdn.com").Extract(page)
	assert.Equal(t, "Folding Umbrella", data.Name)
}

func TestDOMExtractBroadenedImageSearch(t *testing.T) {
	page := `<html><body>
		<h1 class="product-title-text">Desk Lamp</h1>
		<img src="//ae01.alicdn.com/kf/lamp.jpg" alt="desk lamp on table">
		<img src="//ae01.alicdn.com/kf/tracking-pixel.png" alt="">
		<img src="//othercdn.example.com/banner.jpg" alt="promo banner">
	</body></html>`

	data := NewDOMExtractor("alicdn.com").Extract(page)

	// Only the asset-host image with alt text survives the broadened search
	assert.Equal(t, []string{"https://ae01.alicdn.com/kf/lamp.jpg"}, data.Images)
}

func TestDOMExtractNeverNil(t *testing.T) {
	data := NewDOMExtractor("alicdn.com").Extract("")
	require.NotNil(t, data)
	assert.Equal(t, models.ConfidenceDOM, data.Confidence)
	assert.Empty(t, data.Name)
	assert.Zero(t, data.Rating.Average)
}

func TestExtractNumericPrice(t *testing.T) {
	extractor := NewDOMExtractor("alicdn.com")

	testCases := []struct {
		text string
		want float64
	}{
		{"US $1,234.56", 1234.56},
		{"8.99", 8.99},
		{"1.234,56", 1234.56},
		{"Price: 45", 45},
		{"no price here", 0},
		{"", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			assert.InDelta(t, tc.want, extractor.ExtractNumericPrice(tc.text), 0.001)
		})
	}
}
