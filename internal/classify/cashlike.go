package classify

import (
	"regexp"
	"strings"
)

// Cash-equivalent holdings are recognized by what they ARE, never by a list
// of known ticker symbols. Money market funds, treasury bills and sweep
// vehicles from any issuer must classify the same way.
var cashLikePatterns = []*regexp.Regexp{
	regexp.MustCompile(`MONEY\s+MARKET`),
	regexp.MustCompile(`TREASURY\s+BILL`),
	regexp.MustCompile(`\bT-?BILL\b`),
	regexp.MustCompile(`CASH\s+RESERVES`),
	regexp.MustCompile(`CASH\s+MANAGEMENT`),
	regexp.MustCompile(`GOVERNMENT\s+(?:MONEY|CASH)`),
	regexp.MustCompile(`\bSWEEP\b`),
}

// IsCashLikeDescription reports whether a holding's description matches a
// known cash-equivalent pattern. Matching is case-insensitive.
func (c *Classifier) IsCashLikeDescription(description string) bool {
	desc := strings.ToUpper(description)
	for _, re := range cashLikePatterns {
		if re.MatchString(desc) {
			return true
		}
	}
	return false
}
