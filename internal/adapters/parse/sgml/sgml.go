// Package sgml parses SEC SGML submission wrappers: the <SEC-HEADER> block
// and the <DOCUMENT> bodies it wraps.
package sgml

import (
	"bufio"
	"strconv"
	"strings"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
)

// markers are the indicators the pipeline's shape detector also checks;
// kept local so this sub-parser can be used standalone (e.g. from tests)
var markers = []string{
	"<SEC-DOCUMENT>",
	"<SEC-HEADER>",
	"ACCESSION-NUMBER:",
	"<DOCUMENT>",
}

// IsCompatible reports whether content looks like an SEC SGML submission
func IsCompatible(content string) bool {
	upper := strings.ToUpper(content)
	for _, m := range markers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// knownFields maps normalized (lowercase, underscore) header keys to the
// Metadata field they populate
var knownFields = map[string]func(*pdomain.Metadata, string){
	"accession_number":                    func(m *pdomain.Metadata, v string) { m.AccessionNumber = v },
	"central_index_key":                   func(m *pdomain.Metadata, v string) { m.CIK = v },
	"company_conformed_name":              func(m *pdomain.Metadata, v string) { m.CompanyName = v },
	"conformed_submission_type":           func(m *pdomain.Metadata, v string) { m.FormType = v },
	"filed_as_of_date":                    func(m *pdomain.Metadata, v string) { m.FiledAsOfDate = v },
	"conformed_period_of_report":          func(m *pdomain.Metadata, v string) { m.PeriodOfReport = v },
	"acceptance_datetime":                 func(m *pdomain.Metadata, v string) { m.AcceptanceDatetime = v },
	"standard_industrial_classification":  func(m *pdomain.Metadata, v string) { m.SIC = v },
	"state_of_incorporation":              func(m *pdomain.Metadata, v string) { m.StateOfIncorporation = v },
	"fiscal_year_end":                     func(m *pdomain.Metadata, v string) { m.FiscalYearEnd = v },
	"business_phone":                      func(m *pdomain.Metadata, v string) { m.BusinessPhone = v },
	"public_document_count":               func(m *pdomain.Metadata, v string) { m.PublicDocumentCount = v },
	"street_1":                            appendAddr,
	"street_2":                            appendAddr,
	"city":                                appendAddr,
	"state":                               appendAddr,
	"zip":                                 appendAddr,
}

func appendAddr(m *pdomain.Metadata, v string) {
	if v == "" {
		return
	}
	if m.BusinessAddress == "" {
		m.BusinessAddress = v
		return
	}
	m.BusinessAddress = m.BusinessAddress + ", " + v
}

// normalizeKey lowercases and turns hyphens and runs of whitespace into
// single underscores, so "CENTRAL-INDEX-KEY", "CENTRAL INDEX KEY" and
// "central_index_key" collapse to one canonical form
func normalizeKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, "-", " ")
	return strings.Join(strings.Fields(k), "_")
}

// Parse extracts the SEC header into Metadata and splits out each
// <DOCUMENT>...</DOCUMENT> block. It never returns an error for malformed
// input; a submission missing a header or any documents simply yields a
// zero-value Metadata and an empty Documents slice
func Parse(content string) (*pdomain.Metadata, []pdomain.Document) {
	meta := &pdomain.Metadata{AdditionalMetadata: map[string]string{}}
	parseHeader(content, meta)
	docs := parseDocuments(content)
	return meta, docs
}

func parseHeader(content string, meta *pdomain.Metadata) {
	hdrStart := strings.Index(content, "<SEC-HEADER>")
	if hdrStart < 0 {
		return
	}
	hdrEnd := strings.Index(content[hdrStart:], "</SEC-HEADER>")
	var hdr string
	if hdrEnd < 0 {
		// tolerate missing close tag; take up to the first <DOCUMENT>
		if docStart := strings.Index(content[hdrStart:], "<DOCUMENT>"); docStart > 0 {
			hdr = content[hdrStart : hdrStart+docStart]
		} else {
			hdr = content[hdrStart:]
		}
	} else {
		hdr = content[hdrStart : hdrStart+hdrEnd]
	}

	sc := bufio.NewScanner(strings.NewReader(hdr))
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "<") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := normalizeKey(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if val == "" {
			continue
		}
		if setter, ok := knownFields[key]; ok {
			setter(meta, val)
			continue
		}
		meta.AdditionalMetadata[key] = val
	}
}

// parseDocuments splits the body into <DOCUMENT>...</DOCUMENT> blocks and
// extracts the <TYPE>/<SEQUENCE>/<FILENAME>/<DESCRIPTION> tags plus the body
func parseDocuments(content string) []pdomain.Document {
	var docs []pdomain.Document
	rest := content
	for {
		start := strings.Index(rest, "<DOCUMENT>")
		if start < 0 {
			break
		}
		rest = rest[start+len("<DOCUMENT>"):]
		end := strings.Index(rest, "</DOCUMENT>")
		var block string
		if end < 0 {
			block = rest
			rest = ""
		} else {
			block = rest[:end]
			rest = rest[end+len("</DOCUMENT>"):]
		}
		docs = append(docs, parseDocumentBlock(block))
		if end < 0 {
			break
		}
	}
	return docs
}

func parseDocumentBlock(block string) pdomain.Document {
	d := pdomain.Document{
		Type:        tagValue(block, "TYPE"),
		Sequence:    tagValue(block, "SEQUENCE"),
		Filename:    tagValue(block, "FILENAME"),
		Description: tagValue(block, "DESCRIPTION"),
	}
	if textStart := strings.Index(block, "<TEXT>"); textStart >= 0 {
		body := block[textStart+len("<TEXT>"):]
		if textEnd := strings.Index(body, "</TEXT>"); textEnd >= 0 {
			body = body[:textEnd]
		}
		d.Text = body
	}
	return d
}

// tagValue returns the trimmed content of the first line starting with
// "<TAG>" inside block, e.g. tagValue(block, "TYPE") for "<TYPE>N-CSR"
func tagValue(block, tag string) string {
	marker := "<" + tag + ">"
	idx := strings.Index(block, marker)
	if idx < 0 {
		return ""
	}
	rest := block[idx+len(marker):]
	if nl := strings.IndexAny(rest, "\r\n"); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}

// DocumentCount parses the PublicDocumentCount header field, defaulting to 0
func DocumentCount(meta *pdomain.Metadata) int {
	if meta.PublicDocumentCount == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(meta.PublicDocumentCount))
	if err != nil {
		return 0
	}
	return n
}
