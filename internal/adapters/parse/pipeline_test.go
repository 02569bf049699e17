package parse

import (
	"strings"
	"testing"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
)

const sampleSGML = `<SEC-HEADER>0000912057-24-000123.hdr.sgml : 20240115
ACCESSION NUMBER:		0000912057-24-000123
CONFORMED SUBMISSION TYPE:	N-CSR
PUBLIC DOCUMENT COUNT:		2
CONFORMED PERIOD OF REPORT:	20231130
FILED AS OF DATE:		20240115

COMPANY CONFORMED NAME:		EXAMPLE FUND TRUST
CENTRAL INDEX KEY:		0000912057
STANDARD INDUSTRIAL CLASSIFICATION:	[6726]
STATE OF INCORPORATION:	MA
FISCAL YEAR END:		0930
</SEC-HEADER>
<DOCUMENT>
<TYPE>N-CSR
<SEQUENCE>1
<FILENAME>primary.htm
<TEXT>
<html><body><h1>Fund Performance</h1><p>Annual return was strong.</p>
<table><caption>Portfolio Holdings</caption>
<tr><th>Security</th><th>Shares</th></tr>
<tr><td>Acme Corp</td><td>100</td></tr>
</table></body></html>
</TEXT>
</DOCUMENT>
`

const sampleXBRL = `<html xmlns:ix="http://www.xbrl.org/2013/inlineXBRL">
<body>
<xbrli:context id="c1">
<xbrli:entity><xbrli:identifier>0000912057</xbrli:identifier></xbrli:entity>
<xbrli:period><xbrli:instant>2023-11-30</xbrli:instant></xbrli:period>
</xbrli:context>
<ix:nonFraction name="us-gaap:NetAssets" contextRef="c1" unitRef="usd" decimals="-3" scale="3">1,234,000</ix:nonFraction>
</body></html>
`

func TestParse_SGMLOnly(t *testing.T) {
	p := New()
	result := p.Parse([]byte(sampleSGML))

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Strategy != pdomain.StrategySGMLOnly {
		t.Fatalf("expected sgml_only strategy, got %s", result.Strategy)
	}
	if result.Metadata.AccessionNumber != "0000912057-24-000123" {
		t.Fatalf("unexpected accession number: %q", result.Metadata.AccessionNumber)
	}
	if result.Metadata.FormType != "N-CSR" {
		t.Fatalf("unexpected form type: %q", result.Metadata.FormType)
	}
	if len(result.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(result.Documents))
	}
	if len(result.Sections) == 0 {
		t.Fatal("expected at least one section extracted from the embedded document body")
	}
	if len(result.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(result.Tables))
	}
}

func TestParse_XBRLOnly(t *testing.T) {
	p := New()
	result := p.Parse([]byte(sampleXBRL))

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Strategy != pdomain.StrategyXBRLOnly {
		t.Fatalf("expected xbrl_only strategy, got %s", result.Strategy)
	}
	if len(result.XBRLFacts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(result.XBRLFacts))
	}
	fact := result.XBRLFacts[0]
	if fact.Concept != "us-gaap:NetAssets" {
		t.Fatalf("unexpected concept: %q", fact.Concept)
	}
	if fact.Value != "1234000000" {
		t.Fatalf("expected scale applied to value, got %q", fact.Value)
	}
	if fact.EntityIdentifier != "0000912057" {
		t.Fatalf("expected context resolved onto fact, got entity %q", fact.EntityIdentifier)
	}
}

func TestParse_Hybrid(t *testing.T) {
	hybrid := strings.Replace(sampleSGML, "</TEXT>", sampleXBRL+"</TEXT>", 1)

	p := New()
	result := p.Parse([]byte(hybrid))

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Strategy != pdomain.StrategyHybrid {
		t.Fatalf("expected hybrid strategy, got %s", result.Strategy)
	}
	if !result.SGMLParsed || !result.XBRLParsed {
		t.Fatalf("expected both sub-parsers to report success, got sgml=%v xbrl=%v", result.SGMLParsed, result.XBRLParsed)
	}
	if result.Metadata.AccessionNumber == "" {
		t.Fatal("expected SGML metadata to win in hybrid combination")
	}
	if len(result.XBRLFacts) == 0 {
		t.Fatal("expected XBRL facts to be appended in hybrid combination")
	}
}

func TestParse_IncompatibleContent(t *testing.T) {
	p := New()
	result := p.Parse([]byte("plain text with no markers at all"))

	if result.Success {
		t.Fatal("expected success=false for incompatible content")
	}
	if result.Error != ErrIncompatibleContent {
		t.Fatalf("unexpected error: %q", result.Error)
	}
}
