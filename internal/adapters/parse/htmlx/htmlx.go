// Package htmlx implements the legacy HTML extraction path: walking h1..h4
// headers into sections and <table> elements into classified, normalized
// grids. The pipeline runs it for every parsing strategy; tier gating of
// its output happens afterwards in the extraction pass
package htmlx

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
)

var headerKeywords = map[pdomain.SectionType][]string{
	pdomain.SectionPortfolio:   {"portfolio", "holding", "investment"},
	pdomain.SectionPerformance: {"performance", "return", "yield"},
	pdomain.SectionExpenses:    {"expense", "fee"},
	pdomain.SectionRiskFactors: {"risk"},
	pdomain.SectionFinancials:  {"financial statement", "statement of assets", "statement of operations"},
}

// Parse walks the document body and produces sections and tables. Some
// older N-CSR filings declare a non-UTF-8 charset in a <meta> tag; decoding
// runs through charset.NewReader first so the DOM walk always sees UTF-8,
// same pairing Andrew50-peripheral's backend/utils/edgar.go uses for EDGAR
// HTML bodies
func Parse(body string) ([]pdomain.Section, []pdomain.Table) {
	r, err := charset.NewReader(strings.NewReader(body), "text/html")
	if err != nil {
		r = strings.NewReader(body)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil
	}
	w := &walker{}
	w.walk(doc)
	w.closeSection()
	return w.sections, w.tables
}

type walker struct {
	sections []pdomain.Section

	curName string
	curRank int
	curBuf  strings.Builder

	lastHeading string
	tables      []pdomain.Table
}

func headingRank(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	default:
		return 0
	}
}

func (w *walker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4":
			name := strings.TrimSpace(textOf(n))
			w.closeSection()
			w.curName = name
			w.curRank = headingRank(n.Data)
			w.lastHeading = name
			return
		case "table":
			w.tables = append(w.tables, w.parseTable(n))
			return
		case "p":
			txt := strings.TrimSpace(textOf(n))
			if txt != "" {
				w.lastHeading = txt
			}
		case "script", "style":
			return
		}
	}
	if n.Type == html.TextNode {
		t := strings.TrimSpace(n.Data)
		if t != "" {
			if w.curBuf.Len() > 0 {
				w.curBuf.WriteByte(' ')
			}
			w.curBuf.WriteString(t)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) closeSection() {
	if w.curName == "" && w.curBuf.Len() == 0 {
		return
	}
	text := strings.TrimSpace(w.curBuf.String())
	name := w.curName
	if name == "" {
		name = "untitled"
	}
	wc := 0
	if text != "" {
		wc = len(strings.Fields(text))
	}
	w.sections = append(w.sections, pdomain.Section{
		Name:      name,
		Type:      classifySection(name, text),
		TextClean: text,
		WordCount: wc,
	})
	w.curName = ""
	w.curRank = 0
	w.curBuf.Reset()
}

// classifySection maps a heading/body into one of the fixed section tags by
// keyword substring match over the heading plus the first 40 words of the
// body; when several tags match, which one wins is not defined
func classifySection(name, text string) pdomain.SectionType {
	hay := strings.ToLower(name + " " + firstWords(text, 40))
	for t, kws := range headerKeywords {
		for _, kw := range kws {
			if strings.Contains(hay, kw) {
				return t
			}
		}
	}
	return pdomain.SectionOther
}

func firstWords(s string, n int) string {
	f := strings.Fields(s)
	if len(f) > n {
		f = f[:n]
	}
	return strings.Join(f, " ")
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return sb.String()
}

func renderHTML(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func (w *walker) parseTable(n *html.Node) pdomain.Table {
	t := pdomain.Table{HTML: renderHTML(n)}

	var caption string
	var grid [][]string

	var walkTable func(*html.Node)
	walkTable = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "caption":
				caption = strings.TrimSpace(textOf(n))
				return
			case "tr":
				var row []string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
						row = append(row, strings.TrimSpace(textOf(c)))
					}
				}
				if len(row) > 0 {
					grid = append(grid, row)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkTable(c)
		}
	}
	walkTable(n)

	if caption == "" {
		caption = w.lastHeading
	}
	t.Caption = caption
	t.Rows = len(grid)
	maxCols := 0
	for _, r := range grid {
		if len(r) > maxCols {
			maxCols = len(r)
		}
	}
	t.Cols = maxCols
	t.Type = classifyTable(caption, grid)

	if len(grid) > 0 {
		header := grid[0]
		for ri := 1; ri < len(grid); ri++ {
			row := grid[ri]
			for ci, val := range row {
				if strings.TrimSpace(val) == "" {
					continue
				}
				colName := "col_" + strconv.Itoa(ci)
				if ci < len(header) && strings.TrimSpace(header[ci]) != "" {
					colName = strings.TrimSpace(header[ci])
				}
				t.Cells = append(t.Cells, pdomain.Row{
					RowIndex: ri - 1,
					ColName:  colName,
					ColValue: val,
					ColType:  inferCellType(val),
				})
			}
		}
	}

	return t
}

func classifyTable(caption string, grid [][]string) pdomain.TableType {
	hay := strings.ToLower(caption)
	if len(grid) > 0 {
		hay += " " + strings.ToLower(strings.Join(grid[0], " "))
	}
	switch {
	case containsAny(hay, "portfolio", "holdings", "investment", "security", "shares", "market value", "principal"):
		return pdomain.TablePortfolioHoldings
	case containsAny(hay, "performance", "return", "yield"):
		return pdomain.TablePerformanceData
	case containsAny(hay, "assets", "liabilities", "operations"):
		return pdomain.TableFinancialSummary
	default:
		return pdomain.TableOther
	}
}

func containsAny(hay string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(hay, n) {
			return true
		}
	}
	return false
}

var (
	percentRe   = regexp.MustCompile(`%\s*$`)
	currencyRe  = regexp.MustCompile(`^[\s]*[$€£]`)
	numberRe    = regexp.MustCompile(`^\(?-?[\d,]+(\.\d+)?\)?$`)
	dateSlashRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)
	dateWordRe  = regexp.MustCompile(`(?i)^(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4}$`)
)

// inferCellType classifies one normalized table cell by regex, in the
// order given in spec.md §4.4: percentage, currency, number, date, text
func inferCellType(v string) pdomain.CellType {
	v = strings.TrimSpace(v)
	if v == "" || v == "-" || v == "--" {
		return pdomain.CellNull
	}
	switch {
	case percentRe.MatchString(v):
		return pdomain.CellPercentage
	case currencyRe.MatchString(v):
		return pdomain.CellCurrency
	case numberRe.MatchString(v):
		return pdomain.CellNumber
	case dateSlashRe.MatchString(v), dateWordRe.MatchString(v):
		return pdomain.CellDate
	default:
		return pdomain.CellText
	}
}
