// Package parse implements the hybrid SGML/XBRL/HTML filing parser
// pipeline (C4): it inspects raw filing bytes, decides a parsing strategy,
// runs the applicable sub-parsers, and combines their output into one
// normalized Result regardless of input shape
package parse

import (
	"time"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
	"ncsrpipe/internal/adapters/parse/htmlx"
	"ncsrpipe/internal/adapters/parse/sgml"
	"ncsrpipe/internal/adapters/parse/xbrl"
)

// OOMError is the distinguished panic value for out-of-memory conditions,
// raised instead of a failed Result, mirroring the Python original's
// exception-vs-return split (spec.md §4.4, "Error behavior"). Pipeline has
// no recover() of its own; the orchestrator's parseWithTimeout recovers it
type OOMError struct{ Detail string }

func (e *OOMError) Error() string { return "parse: out of memory: " + e.Detail }

// ErrIncompatibleContent is surfaced in Result.Error when neither SGML nor
// XBRL markers are present
const ErrIncompatibleContent = "incompatible_content"

// sniffWindow bounds how much of the decoded text the shape detector
// inspects; SEC headers and ix markers always appear early in the document
const sniffWindow = 64 * 1024

// Pipeline runs shape detection, the applicable sub-parsers, and combines
// their output. It holds no state and is safe for concurrent use
type Pipeline struct{}

// New constructs a Pipeline
func New() *Pipeline { return &Pipeline{} }

// Parse never throws out of the pipeline for ordinary parser errors; it
// populates Result.Error and leaves Success=false. It panics with *OOMError
// only, which callers are expected to recover via a fatal handler that
// routes the filing to the dead-letter queue with failure_type=memory
func (p *Pipeline) Parse(raw []byte) pdomain.Result {
	content := string(raw)
	sniff := content
	if len(sniff) > sniffWindow {
		sniff = sniff[:sniffWindow]
	}

	isSGML := sgml.IsCompatible(sniff)
	isXBRL := xbrl.IsCompatible(sniff)

	switch {
	case isSGML && isXBRL:
		return p.parseHybrid(content)
	case isSGML:
		return p.parseSGMLOnly(content)
	case isXBRL:
		return p.parseXBRLOnly(content)
	default:
		return pdomain.Result{Success: false, Error: ErrIncompatibleContent}
	}
}

func (p *Pipeline) parseSGMLOnly(content string) pdomain.Result {
	t0 := time.Now()
	meta, docs := sgml.Parse(content)
	sgmlDur := time.Since(t0)

	result := pdomain.Result{
		Strategy:   pdomain.StrategySGMLOnly,
		SGMLParsed: true,
		Metadata:   meta,
		Documents:  docs,
		Timings:    pdomain.Timings{SGML: sgmlDur},
	}

	// Standard-tier sections/tables still come from the HTML legacy path,
	// run over the concatenated embedded document bodies
	t1 := time.Now()
	result.Sections, result.Tables = htmlx.Parse(concatBodies(docs))
	result.Timings.HTML = time.Since(t1)
	result.Timings.Combined = time.Since(t0)
	result.Success = true
	return result
}

func (p *Pipeline) parseXBRLOnly(content string) pdomain.Result {
	t0 := time.Now()
	contexts := xbrl.ParseContexts(content)
	facts := xbrl.ParseFacts(content, contexts)
	xbrlDur := time.Since(t0)

	result := pdomain.Result{
		Strategy:   pdomain.StrategyXBRLOnly,
		XBRLParsed: true,
		Contexts:   contexts,
		XBRLFacts:  facts,
		Timings:    pdomain.Timings{XBRL: xbrlDur},
	}

	t1 := time.Now()
	result.Sections, result.Tables = htmlx.Parse(content)
	result.Timings.HTML = time.Since(t1)
	result.Timings.Combined = time.Since(t0)
	result.Success = true
	return result
}

// parseHybrid runs SGML to obtain headers and embedded document bodies,
// then runs XBRL over the concatenated bodies, then the HTML legacy path
// for sections/tables. Metadata from SGML wins over XBRL; XBRL facts are
// appended to any facts surfaced by SGML; success is true if either
// sub-parser succeeded (spec.md §4.4, "Result combination (hybrid)")
func (p *Pipeline) parseHybrid(content string) pdomain.Result {
	t0 := time.Now()
	meta, docs := sgml.Parse(content)
	sgmlDur := time.Since(t0)
	sgmlOK := meta.AccessionNumber != "" || len(docs) > 0

	bodies := concatBodies(docs)
	if bodies == "" {
		bodies = content
	}

	t1 := time.Now()
	contexts := xbrl.ParseContexts(bodies)
	facts := xbrl.ParseFacts(bodies, contexts)
	xbrlDur := time.Since(t1)
	xbrlOK := len(facts) > 0 || len(contexts) > 0

	t2 := time.Now()
	sections, tables := htmlx.Parse(bodies)
	htmlDur := time.Since(t2)

	return pdomain.Result{
		Success:    sgmlOK || xbrlOK,
		Strategy:   pdomain.StrategyHybrid,
		SGMLParsed: sgmlOK,
		XBRLParsed: xbrlOK,
		Metadata:   meta,
		Documents:  docs,
		Contexts:   contexts,
		XBRLFacts:  facts,
		Sections:   sections,
		Tables:     tables,
		Timings: pdomain.Timings{
			SGML:     sgmlDur,
			XBRL:     xbrlDur,
			HTML:     htmlDur,
			Combined: time.Since(t0),
		},
	}
}

func concatBodies(docs []pdomain.Document) string {
	var out string
	for _, d := range docs {
		out += d.Text
	}
	return out
}
