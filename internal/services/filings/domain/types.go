// Package domain defines the filings persistence-layer core ports and types
// (C6): the Filing aggregate and its owned children, as laid out in the
// relational schema carried over from original_source/sec_extractor/storage/models.py
package domain

import "time"

// ProcessingStatus is the lifecycle state of a Filing
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusDeadLetter ProcessingStatus = "dead_letter"
)

// Tier mirrors services/tier/domain.Tier by value so this package has no
// import-time dependency on the tier service
type Tier string

const (
	TierStandard   Tier = "standard"
	TierLimited    Tier = "limited"
	TierMinimal    Tier = "minimal"
	TierDeadLetter Tier = "dead_letter"
)

// Strategy mirrors adapters/parse/domain.Strategy by value, for the same reason
type Strategy string

const (
	StrategySGMLOnly Strategy = "sgml_only"
	StrategyXBRLOnly Strategy = "xbrl_only"
	StrategyHybrid   Strategy = "hybrid"
)

// SectionType mirrors adapters/parse/domain.SectionType
type SectionType string

const (
	SectionPortfolio   SectionType = "portfolio"
	SectionPerformance SectionType = "performance"
	SectionExpenses    SectionType = "expenses"
	SectionRiskFactors SectionType = "risk_factors"
	SectionFinancials  SectionType = "financials"
	SectionOther       SectionType = "other"
)

// TableType mirrors adapters/parse/domain.TableType
type TableType string

const (
	TablePortfolioHoldings TableType = "portfolio_holdings"
	TablePerformanceData   TableType = "performance_data"
	TableFinancialSummary  TableType = "financial_summary"
	TableOther             TableType = "other"
)

// CellType mirrors adapters/parse/domain.CellType
type CellType string

const (
	CellCurrency   CellType = "currency"
	CellPercentage CellType = "percentage"
	CellNumber     CellType = "number"
	CellDate       CellType = "date"
	CellText       CellType = "text"
	CellNull       CellType = "null"
)

// Filing is one row per unique accession number
type Filing struct {
	ID                   int64
	AccessionNumber      string
	CIK                  string
	CompanyName          string
	FormType             string
	FilingDate           string
	PeriodOfReport       string
	AcceptanceDatetime   string
	SIC                  string
	StateOfIncorporation string
	FiscalYearEnd        string
	BusinessAddress      string
	BusinessPhone        string
	SizeMB               float64
	SourceURL            string

	ProcessingStatus ProcessingStatus
	Tier             Tier
	Strategy         Strategy
	SGMLParsed       bool
	XBRLParsed       bool
	SGMLTimingMS     int64
	XBRLTimingMS     int64
	HTMLTimingMS     int64
	XBRLFactCount    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FundMetadata is 0..1 per Filing
type FundMetadata struct {
	FilingID          int64
	FundName          string
	TotalNetAssets    float64
	SharesOutstanding int64
	NAVPerShare       float64
	ExpenseRatio      float64
	PortfolioDate     string
	RawMetadata       map[string]string
}

// NcsrSection is 0..n per Filing
type NcsrSection struct {
	ID        int64
	FilingID  int64
	Name      string
	Type      SectionType
	TextClean string
	WordCount int
}

// NcsrTable is 0..n per Filing, owns NcsrTableRow
type NcsrTable struct {
	ID       int64
	FilingID int64
	Type     TableType
	Caption  string
	HTML     string
	Rows     int
	Cols     int

	Cells []NcsrTableRow
}

// NcsrTableRow is 0..n per NcsrTable; each scalar cell is one row
// (long-form normalization)
type NcsrTableRow struct {
	ID        int64
	TableID   int64
	RowIndex  int
	ColName   string
	ColValue  string
	ColType   CellType
}

// XbrlFact is 0..n per Filing
type XbrlFact struct {
	ID               int64
	FilingID         int64
	Concept          string
	Value            string
	UnitRef          string
	ContextRef       string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	PeriodInstant    time.Time
	EntityIdentifier string
	Decimals         int
	Scale            int
	Precision        int
	Attributes       map[string]string
}

// ProcessingResult is 0..1 per Filing; summary of the most recent run
type ProcessingResult struct {
	FilingID     int64
	Tier         Tier
	Success      bool
	ErrorMessage string
	TableCount   int
	SectionCount int
	DurationMS   int64
	RanAt        time.Time
}

// FilingDocument is 0..n per Filing, supplemented from
// original_source/sec_extractor/storage/models.py: one row per SGML
// <DOCUMENT> block, queryable independent of whether that document
// contributed any sections
type FilingDocument struct {
	ID           int64
	FilingID     int64
	Filename     string
	URL          string
	DocumentType string
	SizeBytes    int64
	IsPrimary    bool
}

// LogStatus is the outcome recorded for one ProcessingLog row
type LogStatus string

const (
	LogStatusOK     LogStatus = "ok"
	LogStatusFailed LogStatus = "failed"
)

// ProcessingLog is 0..n per Filing, supplemented: one row per pipeline
// stage (fetch, parse, persist), giving per-stage observability beyond the
// single ProcessingResult summary row
type ProcessingLog struct {
	ID              int64
	FilingID        int64
	Operation       string
	Status          LogStatus
	Message         string
	ExecutionTimeMS int64
}

// NcsrXbrl is 0..1 per Filing, supplemented: a denormalized "did this
// filing have XBRL" summary distinct from the per-fact XbrlFact rows
type NcsrXbrl struct {
	FilingID   int64
	XBRLURL    string
	KeyMetrics map[string]string
	RawXML     string
}

// DailyMetrics is the aggregate view `daily_metrics(date)` returns
type DailyMetrics struct {
	Date             string
	TotalFilings     int
	CompletedFilings int
	FailedFilings    int
	DeadLetterCount  int
	AvgDurationMS    float64
	TotalXBRLFacts   int
}
