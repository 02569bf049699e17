// Package extraction depth-varies a parsed filing by processing tier (C5):
// standard keeps the full parser Result, limited truncates and windows it,
// minimal drops structure entirely in favor of direct regex key-metric and
// pattern-matched section extraction over a bounded prefix of the raw bytes.
// Grounded on the windowed-scan tradeoff described in
// original_source/sec_extractor's minimal-tier path, expressed here as plain
// regex passes rather than re-running any sub-parser
package extraction

import (
	"regexp"
	"strconv"
	"strings"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
	tierdomain "ncsrpipe/internal/services/tier/domain"
)

const (
	// limitedMetadataWindow bounds how much of the raw text the limited
	// tier spends re-deriving metadata over, to bound time on large filings
	limitedMetadataWindow = 50 * 1024

	// limitedMaxTables is the number of document-order tables kept under
	// the limited tier
	limitedMaxTables = 10

	// minimalMetricsWindow bounds the key-metrics regex scan
	minimalMetricsWindow = 200 * 1024

	// minimalSectionsWindow bounds the critical-sections pattern scan
	minimalSectionsWindow = 300 * 1024

	// criticalSectionSnippet is how many characters of body text follow a
	// matched critical-section heading
	criticalSectionSnippet = 600
)

// Apply depth-varies result per tier. raw is the original filing bytes the
// result was parsed from. dead_letter is never passed here; C3 routes those
// straight to the dead-letter queue without invoking extraction
func Apply(tier tierdomain.Tier, raw []byte, result pdomain.Result) pdomain.Result {
	switch tier {
	case tierdomain.TierStandard:
		return applyStandard(raw, result)
	case tierdomain.TierLimited:
		return applyLimited(raw, result)
	case tierdomain.TierMinimal:
		return applyMinimal(raw, result)
	default:
		return result
	}
}

// applyStandard keeps the result exactly as the full parser produced it,
// except for deriving FundName when the sub-parsers left it unset: every
// tier must yield fund metadata (spec.md §8 scenario S1), not just
// limited/minimal's regex passes
func applyStandard(raw []byte, result pdomain.Result) pdomain.Result {
	if result.Metadata != nil {
		deriveFundName(window(raw, limitedMetadataWindow), result.Metadata)
	}
	return result
}

// applyLimited keeps metadata, all XBRL facts, and all sections, but
// truncates tables to the first N in document order and re-derives metadata
// fields over only a bounded prefix of raw text
func applyLimited(raw []byte, result pdomain.Result) pdomain.Result {
	if len(result.Tables) > limitedMaxTables {
		result.Tables = result.Tables[:limitedMaxTables]
	}
	if result.Metadata != nil {
		rescanMetadata(window(raw, limitedMetadataWindow), result.Metadata)
	}
	return result
}

// applyMinimal keeps metadata and XBRL facts but drops tables and the HTML
// section walk entirely, replacing sections with regex-matched critical
// sections and populating key metrics directly via regex
func applyMinimal(raw []byte, result pdomain.Result) pdomain.Result {
	result.Tables = nil

	if result.Metadata == nil {
		result.Metadata = &pdomain.Metadata{AdditionalMetadata: map[string]string{}}
	}
	extractKeyMetrics(window(raw, minimalMetricsWindow), result.Metadata)
	deriveFundName(window(raw, minimalMetricsWindow), result.Metadata)
	result.Sections = extractCriticalSections(window(raw, minimalSectionsWindow))

	return result
}

func window(raw []byte, n int) string {
	if len(raw) > n {
		raw = raw[:n]
	}
	return string(raw)
}

// rescanMetadata re-derives the handful of financial fields that may have
// only been visible beyond the limited-tier window in the original full
// parse; it never clears a field already set
func rescanMetadata(text string, meta *pdomain.Metadata) {
	extractKeyMetrics(text, meta)
	deriveFundName(text, meta)
}

var (
	navRe = regexp.MustCompile(
		`(?i)net asset value per share[^0-9$]{0,30}\$?\s*([\d,]+\.\d+)`)
	totalAssetsRe = regexp.MustCompile(
		`(?i)total net assets[^0-9$]{0,30}\$?\s*([\d,]+(?:\.\d+)?)`)
	expenseRatioRe = regexp.MustCompile(
		`(?i)(?:total annual fund operating expenses|expense ratio)[^0-9%]{0,40}([\d.]+)\s*%`)
	managementFeeRe = regexp.MustCompile(
		`(?i)management fee[^0-9%]{0,40}([\d.]+)\s*%`)
	turnoverRe = regexp.MustCompile(
		`(?i)portfolio turnover(?: rate)?[^0-9%]{0,40}([\d.]+)\s*%`)
	sharesOutRe = regexp.MustCompile(
		`(?i)shares outstanding[^0-9]{0,30}([\d,]+)`)
)

// extractKeyMetrics scans text for the six fixed financial metrics named in
// spec.md §4.5 and sets them on meta only if not already present
func extractKeyMetrics(text string, meta *pdomain.Metadata) {
	if !meta.HasNAVPerShare {
		if m := navRe.FindStringSubmatch(text); m != nil {
			if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
				meta.NAVPerShare = f
				meta.HasNAVPerShare = true
			}
		}
	}
	if !meta.HasTotalNetAssets {
		if m := totalAssetsRe.FindStringSubmatch(text); m != nil {
			if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
				meta.TotalNetAssets = f
				meta.HasTotalNetAssets = true
			}
		}
	}
	if !meta.HasExpenseRatio {
		if m := expenseRatioRe.FindStringSubmatch(text); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				meta.ExpenseRatio = f
				meta.HasExpenseRatio = true
			}
		}
	}
	if !meta.HasManagementFee {
		if m := managementFeeRe.FindStringSubmatch(text); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				meta.ManagementFee = f
				meta.HasManagementFee = true
			}
		}
	}
	if !meta.HasPortfolioTurnover {
		if m := turnoverRe.FindStringSubmatch(text); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				meta.PortfolioTurnover = f
				meta.HasPortfolioTurnover = true
			}
		}
	}
	if !meta.HasSharesOutstanding {
		if m := sharesOutRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64); err == nil {
				meta.SharesOutstanding = n
				meta.HasSharesOutstanding = true
			}
		}
	}
}

var (
	titleTagRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headingTagRe = regexp.MustCompile(`(?is)<h[12][^>]*>(.*?)</h[12]>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
)

// fundNameKeywords matches original_source/sec_extractor/extractors/parsers.py's
// extract_fund_metadata: a title/h1/h2 counts as a fund name only if it
// contains one of these words
var fundNameKeywords = []string{"fund", "trust", "portfolio"}

const fundNameMaxLen = 500

// deriveFundName sets meta.FundName from the first <title>/<h1>/<h2> whose
// text contains a fund-name keyword, falling back to the SGML company name
// (original_source/sec_extractor/core/parser_integration.py's
// _save_enhanced_metadata, which seeds fund_name from company_name). Never
// overwrites a FundName a sub-parser already set
func deriveFundName(text string, meta *pdomain.Metadata) {
	if meta.FundName != "" {
		return
	}
	for _, m := range titleTagRe.FindAllStringSubmatch(text, -1) {
		if name, ok := fundNameCandidate(m[1]); ok {
			meta.FundName = name
			return
		}
	}
	for _, m := range headingTagRe.FindAllStringSubmatch(text, -1) {
		if name, ok := fundNameCandidate(m[1]); ok {
			meta.FundName = name
			return
		}
	}
	if meta.CompanyName != "" {
		meta.FundName = meta.CompanyName
	}
}

func fundNameCandidate(raw string) (string, bool) {
	clean := strings.TrimSpace(collapseWhitespace(htmlTagRe.ReplaceAllString(raw, " ")))
	if clean == "" {
		return "", false
	}
	lower := strings.ToLower(clean)
	for _, kw := range fundNameKeywords {
		if strings.Contains(lower, kw) {
			if len(clean) > fundNameMaxLen {
				clean = clean[:fundNameMaxLen]
			}
			return clean, true
		}
	}
	return "", false
}

var criticalSectionPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"investment_objective", regexp.MustCompile(`(?i)investment\s+objectives?`)},
	{"fund_summary", regexp.MustCompile(`(?i)fund\s+summary`)},
	{"performance_summary", regexp.MustCompile(`(?i)performance\s+summary`)},
}

// extractCriticalSections finds the first occurrence of each of the three
// fixed minimal-tier section patterns and captures a bounded snippet of
// trailing body text as its content
func extractCriticalSections(text string) []pdomain.Section {
	var sections []pdomain.Section
	for _, p := range criticalSectionPatterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		start := loc[1]
		end := start + criticalSectionSnippet
		if end > len(text) {
			end = len(text)
		}
		body := strings.TrimSpace(collapseWhitespace(text[start:end]))
		sections = append(sections, pdomain.Section{
			Name:      p.name,
			Type:      classifyCriticalSection(p.name),
			TextClean: body,
			WordCount: len(strings.Fields(body)),
		})
	}
	return sections
}

func classifyCriticalSection(name string) pdomain.SectionType {
	switch name {
	case "performance_summary":
		return pdomain.SectionPerformance
	default:
		return pdomain.SectionOther
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
