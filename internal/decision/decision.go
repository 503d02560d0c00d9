// Package decision turns raw announcement titles into trading
// decisions. It is pure string work: no I/O, no state, deterministic,
// so the same title always produces the same decision.
//
// The matching is heuristic by design. Titles are free text written by
// exchange staff; the rules below are the best-effort patterns the
// production feed has validated and they may over- or under-extract on
// unusual phrasing. Do not "fix" individual titles here without new
// requirements.
package decision

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hprow/bnc-anc/internal/domain"
)

// BTCAlias maps base tickers that one venue lists under a different
// name. KuCoin futures trades BTC as XBT.
var BTCAlias = map[string]string{"BTC": "XBT"}

var (
	parenRe   = regexp.MustCompile(`\(([A-Z0-9]{2,15})\)`)
	dateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	usdtRe    = regexp.MustCompile(`\b([A-Z0-9]{2,30})USDT\b`)
	delistRe  = regexp.MustCompile(`(?i)delist\s+(.+)`)
	delistTok = regexp.MustCompile(`\bdelist\b`)
	tokenRe   = regexp.MustCompile(`^[A-Z0-9]{2,15}$`)
	splitRe   = regexp.MustCompile(`[,\s]+and\s+|,\s*|\s+`)
)

// listingTriggers are the phrasings that announce a new listing.
var listingTriggers = []string{
	"will add",
	"will list",
	"will be available",
	"will launch",
	"futures will launch",
}

// quote currencies are never bases.
var quoteTokens = map[string]bool{"USDT": true, "USDC": true, "USD": true}

// Decide classifies a title and extracts the affected base tickers.
// Delisting takes precedence over listing triggers. A match with zero
// surviving bases degrades to KindNone.
func Decide(title string) domain.Decision {
	if title == "" {
		return domain.Decision{Kind: domain.KindNone}
	}
	tl := strings.ToLower(title)

	if strings.Contains(tl, "will delist") || delistTok.MatchString(tl) {
		bases := basesFromDelist(title)
		if len(bases) == 0 {
			return domain.Decision{Kind: domain.KindNone}
		}
		return domain.Decision{Kind: domain.KindDelisting, Bases: sorted(bases)}
	}

	for _, trigger := range listingTriggers {
		if !strings.Contains(tl, trigger) {
			continue
		}
		bases := basesFromParentheses(title)
		for b := range basesFromUSDTPairs(title) {
			bases[b] = true
		}
		if len(bases) == 0 {
			return domain.Decision{Kind: domain.KindNone}
		}
		return domain.Decision{Kind: domain.KindListing, Bases: sorted(bases)}
	}

	return domain.Decision{Kind: domain.KindNone}
}

// basesFromParentheses collects parenthesized uppercase tokens,
// skipping anything shaped like a YYYY-MM-DD date.
func basesFromParentheses(title string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range parenRe.FindAllStringSubmatch(title, -1) {
		tok := m[1]
		if dateRe.MatchString(tok) {
			continue
		}
		out[strings.ToUpper(tok)] = true
	}
	return out
}

// basesFromUSDTPairs extracts the base from pair spellings like
// "FOOUSDT".
func basesFromUSDTPairs(title string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range usdtRe.FindAllStringSubmatch(title, -1) {
		out[strings.ToUpper(m[1])] = true
	}
	return out
}

// basesFromDelist parses the token list following "delist", truncated
// at the " on <date>" suffix and split on commas and "and".
func basesFromDelist(title string) map[string]bool {
	m := delistRe.FindStringSubmatch(title)
	if m == nil {
		return nil
	}
	seg := m[1]
	if idx := strings.Index(seg, " on "); idx >= 0 {
		seg = seg[:idx]
	}

	out := make(map[string]bool)
	for _, p := range splitRe.Split(seg, -1) {
		tok := strings.ToUpper(strings.TrimSpace(p))
		if !tokenRe.MatchString(tok) {
			continue
		}
		if quoteTokens[tok] {
			continue
		}
		out[tok] = true
	}
	return out
}

func sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
