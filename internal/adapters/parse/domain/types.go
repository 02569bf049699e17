// Package domain holds the normalized shapes produced by the parser pipeline
package domain

import "time"

// Strategy records which sub-parsers ran and combined to produce a ParseResult
type Strategy string

const (
	// StrategySGMLOnly means only the SGML sub-parser found markers
	StrategySGMLOnly Strategy = "sgml_only"

	// StrategyXBRLOnly means only the inline-XBRL sub-parser found markers
	StrategyXBRLOnly Strategy = "xbrl_only"

	// StrategyHybrid means both SGML and XBRL markers were present
	StrategyHybrid Strategy = "hybrid"
)

// Metadata is the normalized filing header, regardless of which sub-parser
// populated it. Fields are pointers/zero-value when unknown rather than
// omitted, so callers don't need a second presence map
type Metadata struct {
	AccessionNumber          string
	CIK                      string
	CompanyName              string
	FormType                 string
	FiledAsOfDate            string
	PeriodOfReport           string
	AcceptanceDatetime       string
	SIC                      string
	StateOfIncorporation     string
	FiscalYearEnd            string
	BusinessAddress          string
	BusinessPhone            string
	PublicDocumentCount      string
	FundName                 string
	TotalNetAssets           float64
	HasTotalNetAssets        bool
	SharesOutstanding        int64
	HasSharesOutstanding     bool
	NAVPerShare              float64
	HasNAVPerShare           bool
	ExpenseRatio             float64
	HasExpenseRatio          bool
	ManagementFee            float64
	HasManagementFee         bool
	PortfolioTurnover        float64
	HasPortfolioTurnover     bool
	PortfolioDate            string
	AdditionalMetadata       map[string]string
}

// Document is one <DOCUMENT>...</DOCUMENT> block from an SGML submission
type Document struct {
	Type        string
	Sequence    string
	Filename    string
	Description string
	Text        string
}

// Context is an XBRL (entity, period, scenario) tuple keyed by context id
type Context struct {
	ID               string
	EntityIdentifier string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	PeriodInstant    time.Time
}

// XBRLFact is one ix:nonFraction / ix:nonNumeric / ix:fraction element
type XBRLFact struct {
	Concept                string
	Value                  string
	UnitRef                string
	ContextRef             string
	Decimals               int
	HasDecimals            bool
	DecimalsInf            bool
	Scale                  int
	HasScale               bool
	Precision              int
	HasPrecision           bool
	AdditionalAttributes   map[string]string
	PeriodStart            time.Time
	PeriodEnd              time.Time
	PeriodInstant          time.Time
	EntityIdentifier       string
}

// SectionType classifies a Section by its semantic role
type SectionType string

const (
	SectionPortfolio    SectionType = "portfolio"
	SectionPerformance  SectionType = "performance"
	SectionExpenses     SectionType = "expenses"
	SectionRiskFactors  SectionType = "risk_factors"
	SectionFinancials   SectionType = "financials"
	SectionOther        SectionType = "other"
)

// Section is a contiguous run of body text under one heading
type Section struct {
	Name      string
	Type      SectionType
	TextClean string
	WordCount int
}

// CellType classifies a single normalized table cell
type CellType string

const (
	CellCurrency   CellType = "currency"
	CellPercentage CellType = "percentage"
	CellNumber     CellType = "number"
	CellDate       CellType = "date"
	CellText       CellType = "text"
	CellNull       CellType = "null"
)

// TableType classifies a Table by what it tabulates
type TableType string

const (
	TablePortfolioHoldings TableType = "portfolio_holdings"
	TablePerformanceData   TableType = "performance_data"
	TableFinancialSummary  TableType = "financial_summary"
	TableOther             TableType = "other"
)

// Row is one long-form normalized cell: (row_index, col_name, col_value, col_type)
type Row struct {
	RowIndex int
	ColName  string
	ColValue string
	ColType  CellType
}

// Table is one <table> element, its preserved HTML, and its normalized rows
type Table struct {
	Type    TableType
	Caption string
	HTML    string
	Rows    int
	Cols    int
	Cells   []Row
}

// Timings records per-sub-parser wall-clock duration
type Timings struct {
	SGML     time.Duration
	XBRL     time.Duration
	HTML     time.Duration
	Combined time.Duration
}

// Result is the normalized output of the parser pipeline, independent of
// whether the input was SGML, inline XBRL, HTML, or a hybrid of the three
type Result struct {
	Success  bool
	Strategy Strategy

	SGMLParsed bool
	XBRLParsed bool

	Metadata   *Metadata
	Documents  []Document
	Contexts   map[string]Context
	XBRLFacts  []XBRLFact
	Sections   []Section
	Tables     []Table

	Timings Timings
	Error   string
}
