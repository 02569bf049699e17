// Package xbrl extracts inline-XBRL facts (ix:nonFraction / ix:nonNumeric /
// ix:fraction elements) and their supporting xbrli:context definitions from
// an HTML-embedded filing body. Filings mix arbitrary HTML around these
// elements, so this is a tag-scoped regex walk rather than a strict XML
// decode, the same tradeoff the reference implementation makes
package xbrl

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
)

var markers = []string{
	"xmlns:ix=",
	"<ix:nonfraction",
	"<ix:nonnumeric",
	"inlinexbrl",
	"xbrl.org",
}

// IsCompatible reports whether content contains inline-XBRL markers
func IsCompatible(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var (
	elementRe = regexp.MustCompile(
		`(?is)<ix:(nonFraction|nonNumeric|fraction)\b([^>]*?)(/>|>(.*?)</ix:(?:nonFraction|nonNumeric|fraction)>)`,
	)
	attrRe    = regexp.MustCompile(`([a-zA-Z][\w:.-]*)\s*=\s*"([^"]*)"`)
	contextRe = regexp.MustCompile(`(?is)<(?:xbrli:|ix:)?context\s+id="([^"]*)"\s*>(.*?)</(?:xbrli:|ix:)?context>`)
	periodRe  = regexp.MustCompile(`(?is)<(?:xbrli:)?period\s*>(.*?)</(?:xbrli:)?period>`)
	startRe   = regexp.MustCompile(`(?is)<(?:xbrli:)?startDate\s*>([^<]*)</(?:xbrli:)?startDate>`)
	endRe     = regexp.MustCompile(`(?is)<(?:xbrli:)?endDate\s*>([^<]*)</(?:xbrli:)?endDate>`)
	instantRe = regexp.MustCompile(`(?is)<(?:xbrli:)?instant\s*>([^<]*)</(?:xbrli:)?instant>`)
	entityRe  = regexp.MustCompile(`(?is)<(?:xbrli:)?identifier[^>]*>([^<]*)</(?:xbrli:)?identifier>`)
	tagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
)

// ParseContexts extracts every <xbrli:context id="..."> (or <ix:context>)
// block keyed by its id
func ParseContexts(content string) map[string]pdomain.Context {
	out := map[string]pdomain.Context{}
	for _, m := range contextRe.FindAllStringSubmatch(content, -1) {
		id, body := m[1], m[2]
		ctx := pdomain.Context{ID: id}
		if em := entityRe.FindStringSubmatch(body); em != nil {
			ctx.EntityIdentifier = strings.TrimSpace(em[1])
		}
		if pm := periodRe.FindStringSubmatch(body); pm != nil {
			period := pm[1]
			if sm := startRe.FindStringSubmatch(period); sm != nil {
				ctx.PeriodStart = parseDate(sm[1])
			}
			if em := endRe.FindStringSubmatch(period); em != nil {
				ctx.PeriodEnd = parseDate(em[1])
			}
			if im := instantRe.FindStringSubmatch(period); im != nil {
				ctx.PeriodInstant = parseDate(im[1])
			}
		}
		out[id] = ctx
	}
	return out
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseFacts extracts every ix:nonFraction/ix:nonNumeric/ix:fraction element
// and resolves its period/entity fields against the given contexts
func ParseFacts(content string, contexts map[string]pdomain.Context) []pdomain.XBRLFact {
	var facts []pdomain.XBRLFact
	for _, m := range elementRe.FindAllStringSubmatch(content, -1) {
		attrsRaw := m[2]
		inner := m[4]

		attrs := map[string]string{}
		for _, am := range attrRe.FindAllStringSubmatch(attrsRaw, -1) {
			attrs[strings.ToLower(am[1])] = am[2]
		}

		fact := pdomain.XBRLFact{
			Concept:              attrs["name"],
			UnitRef:              attrs["unitref"],
			ContextRef:           attrs["contextref"],
			AdditionalAttributes: map[string]string{},
		}

		raw := strings.TrimSpace(tagRe.ReplaceAllString(inner, ""))
		fact.Value = applyScale(raw, attrs["scale"], attrs["sign"])

		if d, ok := attrs["decimals"]; ok {
			if strings.EqualFold(strings.TrimSpace(d), "INF") {
				fact.DecimalsInf = true
			} else if n, err := strconv.Atoi(strings.TrimSpace(d)); err == nil {
				fact.Decimals = n
				fact.HasDecimals = true
			}
		}
		if s, ok := attrs["scale"]; ok {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				fact.Scale = n
				fact.HasScale = true
			}
		}
		if p, ok := attrs["precision"]; ok && !strings.EqualFold(p, "INF") {
			if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
				fact.Precision = n
				fact.HasPrecision = true
			}
		}

		for k, v := range attrs {
			switch k {
			case "name", "unitref", "contextref", "decimals", "scale", "precision", "sign":
				continue
			default:
				fact.AdditionalAttributes[k] = v
			}
		}

		if ctx, ok := contexts[fact.ContextRef]; ok {
			fact.EntityIdentifier = ctx.EntityIdentifier
			fact.PeriodStart = ctx.PeriodStart
			fact.PeriodEnd = ctx.PeriodEnd
			fact.PeriodInstant = ctx.PeriodInstant
		}

		facts = append(facts, fact)
	}
	return facts
}

// applyScale shifts a numeric value's decimal point by scale positions and
// applies a "-" sign attribute; non-numeric values pass through unchanged
func applyScale(raw, scaleStr, sign string) string {
	cleaned := strings.ReplaceAll(raw, ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return raw
	}
	if scaleStr != "" {
		if scale, err := strconv.Atoi(strings.TrimSpace(scaleStr)); err == nil && scale != 0 {
			f *= math.Pow(10, float64(scale))
		}
	}
	if sign == "-" {
		f = -f
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
