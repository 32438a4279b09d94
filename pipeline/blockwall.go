package pipeline

import (
	"regexp"
	"strings"
)

// BlockWallDetector spots anti-bot interstitials and CAPTCHA pages served
// by a mirror instead of product content
type BlockWallDetector struct {
	blockPatterns   []*regexp.Regexp
	captchaPatterns []*regexp.Regexp
	errorPatterns   []*regexp.Regexp
}

// NewBlockWallDetector creates a new block wall detector
func NewBlockWallDetector() *BlockWallDetector {
	return &BlockWallDetector{
		blockPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)bot detected`),
			regexp.MustCompile(`(?i)please verify you are human`),
			regexp.MustCompile(`(?i)security check`),
			regexp.MustCompile(`(?i)checking your browser`),
			regexp.MustCompile(`(?i)rate limit`),
			regexp.MustCompile(`(?i)too many requests`),
			regexp.MustCompile(`(?i)unusual traffic`),
			regexp.MustCompile(`(?i)slide to verify`),
			regexp.MustCompile(`(?i)punish\?x5secdata`),
		},
		captchaPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)captcha`),
			regexp.MustCompile(`(?i)recaptcha`),
			regexp.MustCompile(`(?i)hcaptcha`),
			regexp.MustCompile(`(?i)verify you are human`),
			regexp.MustCompile(`(?i)drag the slider`),
		},
		errorPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)403 forbidden`),
			regexp.MustCompile(`(?i)503 service unavailable`),
			regexp.MustCompile(`(?i)page not found`),
			regexp.MustCompile(`(?i)site temporarily unavailable`),
		},
	}
}

// Detect scores page content for block wall indicators. A score above 0.3
// means the page is most likely an interstitial rather than product content.
func (bd *BlockWallDetector) Detect(pageContent string) (bool, string, float64) {
	content := strings.ToLower(pageContent)

	score := 0.0
	reasons := []string{}

	for _, pattern := range bd.blockPatterns {
		if pattern.MatchString(content) {
			score += 0.3
			reasons = append(reasons, pattern.String())
		}
	}

	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			score += 0.5
			reasons = append(reasons, "CAPTCHA: "+pattern.String())
		}
	}

	for _, pattern := range bd.errorPatterns {
		if pattern.MatchString(content) {
			score += 0.4
			reasons = append(reasons, "HTTP error page: "+pattern.String())
		}
	}

	// Block pages are typically tiny compared to a real product page
	if len(content) < 1000 && score > 0 {
		score += 0.2
		reasons = append(reasons, "very short content with block indicators")
	}

	if score > 1.0 {
		score = 1.0
	}

	return score > 0.3, strings.Join(reasons, "; "), score
}

// IsCaptcha checks specifically for a CAPTCHA challenge page
func (bd *BlockWallDetector) IsCaptcha(pageContent string) bool {
	content := strings.ToLower(pageContent)
	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			return true
		}
	}
	return false
}
