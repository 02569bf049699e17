// Package repo implements the filings storage repository against Postgres
// with hand-written SQL (no ORM), modeled on the teacher's
// internal/services/utterances/repo style of dynamic-argument raw SQL over
// a repokit.Queryer
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ncsrpipe/internal/modkit/repokit"
	ptime "ncsrpipe/internal/platform/time"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
	fdomain "ncsrpipe/internal/services/filings/domain"
)

// NewPG returns a binder producing a Postgres-backed StorageRepo
func NewPG() repokit.Binder[fdomain.StorageRepo] {
	return repokit.BindFunc[fdomain.StorageRepo](func(q repokit.Queryer) fdomain.StorageRepo {
		return &pgStore{q: q}
	})
}

type pgStore struct{ q repokit.Queryer }

// EnsureFiling inserts a Filing row for a freshly discovered descriptor if
// one doesn't already exist for its accession number, returning its id
func (s *pgStore) EnsureFiling(ctx context.Context, f fdomain.NewFiling) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `
		INSERT INTO filings (
			accession_number, cik, company_name, form_type, filing_date,
			size_mb, source_url, processing_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', now(), now())
		ON CONFLICT (accession_number) DO UPDATE
			SET company_name = EXCLUDED.company_name
		RETURNING id`,
		f.AccessionNumber, f.CIK, f.CompanyName, f.FormType, f.FilingDate, f.SizeMB, f.SourceURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("filings: ensure filing %s: %w", f.AccessionNumber, err)
	}
	return id, nil
}

// SetStatus updates only the processing_status column for filingID
func (s *pgStore) SetStatus(ctx context.Context, filingID int64, status fdomain.ProcessingStatus) error {
	if _, err := s.q.Exec(ctx, `
		UPDATE filings SET processing_status = $2, updated_at = now() WHERE id = $1`,
		filingID, string(status),
	); err != nil {
		return fmt.Errorf("filings: set status for filing %d: %w", filingID, err)
	}
	return nil
}

// Save performs the full write described in spec.md §4.6 step 1-6 against
// the Queryer bound to this call; callers are expected to invoke Save
// inside a single transaction via repokit.TxRunner.Tx so a parser/storage
// failure mid-write rolls back every child insert alongside it
func (s *pgStore) Save(ctx context.Context, filingID int64, tier fdomain.Tier, result pdomain.Result) error {
	status := fdomain.StatusFailed
	if result.Success {
		status = fdomain.StatusCompleted
	}

	var meta *pdomain.Metadata
	if result.Metadata != nil {
		meta = result.Metadata
	} else {
		meta = &pdomain.Metadata{}
	}

	if _, err := s.q.Exec(ctx, `
		UPDATE filings SET
			processing_status = $2,
			tier              = $3,
			strategy          = $4,
			sgml_parsed       = $5,
			xbrl_parsed       = $6,
			sgml_timing_ms    = $7,
			xbrl_timing_ms    = $8,
			html_timing_ms    = $9,
			xbrl_fact_count   = $10,
			acceptance_datetime       = COALESCE(NULLIF(acceptance_datetime, ''), $11),
			sic                       = COALESCE(NULLIF(sic, ''), $12),
			state_of_incorporation    = COALESCE(NULLIF(state_of_incorporation, ''), $13),
			fiscal_year_end           = COALESCE(NULLIF(fiscal_year_end, ''), $14),
			business_address          = COALESCE(NULLIF(business_address, ''), $15),
			business_phone            = COALESCE(NULLIF(business_phone, ''), $16),
			updated_at        = now()
		WHERE id = $1`,
		filingID, string(status), string(tier), string(result.Strategy),
		result.SGMLParsed, result.XBRLParsed,
		result.Timings.SGML.Milliseconds(), result.Timings.XBRL.Milliseconds(), result.Timings.HTML.Milliseconds(),
		len(result.XBRLFacts),
		meta.AcceptanceDatetime, meta.SIC, meta.StateOfIncorporation, meta.FiscalYearEnd,
		meta.BusinessAddress, meta.BusinessPhone,
	); err != nil {
		return fmt.Errorf("filings: update filing %d: %w", filingID, err)
	}

	// fund metadata, per-document rows, and the XBRL key-metrics summary
	// are all optional side writes off the same parsed Result; running
	// them as mid-transaction hooks keeps Save's core flow (filings row,
	// sections, tables, facts, processing_results) free of their
	// conditionals
	if err := repokit.RunMidHooks(ctx, s.q,
		fundMetadataHook(filingID, meta),
		filingDocumentsHook(filingID, result.Documents),
		ncsrXBRLHook(filingID, result),
	); err != nil {
		return err
	}

	for _, sec := range result.Sections {
		if _, err := s.q.Exec(ctx, `
			INSERT INTO ncsr_sections (filing_id, name, type, text_clean, word_count)
			VALUES ($1, $2, $3, $4, $5)`,
			filingID, sec.Name, string(sec.Type), sec.TextClean, sec.WordCount,
		); err != nil {
			return fmt.Errorf("filings: insert section %q: %w", sec.Name, err)
		}
	}

	for _, tbl := range result.Tables {
		var tableID int64
		if err := s.q.QueryRow(ctx, `
			INSERT INTO ncsr_tables (filing_id, type, caption, html, rows, cols)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			filingID, string(tbl.Type), tbl.Caption, tbl.HTML, tbl.Rows, tbl.Cols,
		).Scan(&tableID); err != nil {
			return fmt.Errorf("filings: insert table %q: %w", tbl.Caption, err)
		}
		for _, cell := range tbl.Cells {
			if _, err := s.q.Exec(ctx, `
				INSERT INTO ncsr_table_rows (table_id, row_index, col_name, col_value, col_type)
				VALUES ($1, $2, $3, $4, $5)`,
				tableID, cell.RowIndex, cell.ColName, cell.ColValue, string(cell.ColType),
			); err != nil {
				return fmt.Errorf("filings: insert table row for table %d: %w", tableID, err)
			}
		}
	}

	for _, fact := range result.XBRLFacts {
		attrs, err := json.Marshal(fact.AdditionalAttributes)
		if err != nil {
			return fmt.Errorf("filings: marshal fact attributes: %w", err)
		}
		if _, err := s.q.Exec(ctx, `
			INSERT INTO xbrl_facts (
				filing_id, concept, value, unit_ref, context_ref,
				period_start, period_end, period_instant, entity_identifier,
				decimals, scale, precision, additional_attributes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			filingID, fact.Concept, fact.Value, fact.UnitRef, fact.ContextRef,
			ptime.Ptr(fact.PeriodStart), ptime.Ptr(fact.PeriodEnd), ptime.Ptr(fact.PeriodInstant),
			fact.EntityIdentifier, fact.Decimals, fact.Scale, fact.Precision, attrs,
		); err != nil {
			return fmt.Errorf("filings: insert xbrl fact %q: %w", fact.Concept, err)
		}
	}

	if _, err := s.q.Exec(ctx, `
		INSERT INTO processing_results (
			filing_id, tier, success, error_message, table_count, section_count, duration_ms, ran_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (filing_id) DO UPDATE SET
			tier = EXCLUDED.tier, success = EXCLUDED.success, error_message = EXCLUDED.error_message,
			table_count = EXCLUDED.table_count, section_count = EXCLUDED.section_count,
			duration_ms = EXCLUDED.duration_ms, ran_at = EXCLUDED.ran_at`,
		filingID, string(tier), result.Success, result.Error,
		len(result.Tables), len(result.Sections), result.Timings.Combined.Milliseconds(),
	); err != nil {
		return fmt.Errorf("filings: upsert processing result for filing %d: %w", filingID, err)
	}

	return nil
}

func hasFundMetadata(m *pdomain.Metadata) bool {
	return m.FundName != "" || m.HasTotalNetAssets || m.HasSharesOutstanding ||
		m.HasNAVPerShare || m.HasExpenseRatio || m.PortfolioDate != ""
}

// fundMetadataHook upserts the fund_metadata row when the parsed Result
// carries any fund-level field, a no-op otherwise
func fundMetadataHook(filingID int64, m *pdomain.Metadata) repokit.MidHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		if !hasFundMetadata(m) {
			return nil
		}
		raw, err := json.Marshal(m.AdditionalMetadata)
		if err != nil {
			return fmt.Errorf("filings: marshal fund metadata: %w", err)
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO fund_metadata (
				filing_id, fund_name, total_net_assets, shares_outstanding,
				nav_per_share, expense_ratio, portfolio_date, raw_metadata
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (filing_id) DO UPDATE SET
				fund_name = EXCLUDED.fund_name,
				total_net_assets = EXCLUDED.total_net_assets,
				shares_outstanding = EXCLUDED.shares_outstanding,
				nav_per_share = EXCLUDED.nav_per_share,
				expense_ratio = EXCLUDED.expense_ratio,
				portfolio_date = EXCLUDED.portfolio_date,
				raw_metadata = EXCLUDED.raw_metadata`,
			filingID, m.FundName, m.TotalNetAssets, m.SharesOutstanding,
			m.NAVPerShare, m.ExpenseRatio, m.PortfolioDate, raw,
		); err != nil {
			return fmt.Errorf("filings: upsert fund metadata for filing %d: %w", filingID, err)
		}
		return nil
	}
}

// filingDocumentsHook inserts one filing_documents row per embedded <DOCUMENT>
func filingDocumentsHook(filingID int64, docs []pdomain.Document) repokit.MidHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		for _, doc := range docs {
			if _, err := q.Exec(ctx, `
				INSERT INTO filing_documents (filing_id, filename, url, document_type, size_bytes, is_primary)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				filingID, doc.Filename, "", doc.Type, len(doc.Text), doc.Sequence == "1",
			); err != nil {
				return fmt.Errorf("filings: insert filing document %q: %w", doc.Filename, err)
			}
		}
		return nil
	}
}

// ncsrXBRLHook writes the denormalized "did this filing have XBRL" summary
// row when XBRL parsing ran, a no-op otherwise: key metrics are the numeric
// metadata fields the minimal-tier regex scan also surfaces, so a dashboard
// can read them without joining against xbrl_facts (SPEC_FULL.md §3, NcsrXbrl)
func ncsrXBRLHook(filingID int64, result pdomain.Result) repokit.MidHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		if !result.XBRLParsed {
			return nil
		}
		metrics := map[string]string{}
		if m := result.Metadata; m != nil {
			if m.HasNAVPerShare {
				metrics["nav_per_share"] = fmt.Sprintf("%v", m.NAVPerShare)
			}
			if m.HasTotalNetAssets {
				metrics["total_net_assets"] = fmt.Sprintf("%v", m.TotalNetAssets)
			}
			if m.HasExpenseRatio {
				metrics["expense_ratio"] = fmt.Sprintf("%v", m.ExpenseRatio)
			}
		}
		blob, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("filings: marshal ncsr_xbrl key metrics: %w", err)
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO ncsr_xbrl (filing_id, xbrl_url, key_metrics, raw_xml)
			VALUES ($1, '', $2, '')
			ON CONFLICT (filing_id) DO UPDATE SET key_metrics = EXCLUDED.key_metrics`,
			filingID, blob,
		); err != nil {
			return fmt.Errorf("filings: upsert ncsr_xbrl for filing %d: %w", filingID, err)
		}
		return nil
	}
}

// LogOperation appends one processing_log row for filingID; it runs on its
// own Queryer (not inside Save's transaction) since stage logging must
// survive a later stage's rollback (spec.md §7, "per-filing log lines")
func (s *pgStore) LogOperation(ctx context.Context, filingID int64, operation string, status fdomain.LogStatus, message string, executionTimeMS int64) error {
	if _, err := s.q.Exec(ctx, `
		INSERT INTO processing_log (filing_id, operation, status, message, execution_time_ms, logged_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		filingID, operation, string(status), message, executionTimeMS,
	); err != nil {
		return fmt.Errorf("filings: log operation %q for filing %d: %w", operation, filingID, err)
	}
	return nil
}

// GetByAccession fetches a Filing by accession number; child records are
// intentionally not eager-loaded here (display-oriented callers fetch them
// separately to keep this a single round trip for the common existence check)
func (s *pgStore) GetByAccession(ctx context.Context, accession string) (*fdomain.Filing, error) {
	var f fdomain.Filing
	var status, tier, strategy string
	err := s.q.QueryRow(ctx, `
		SELECT id, accession_number, cik, company_name, form_type, filing_date,
		       period_of_report, acceptance_datetime, sic, state_of_incorporation,
		       fiscal_year_end, business_address, business_phone, size_mb, source_url,
		       processing_status, COALESCE(tier, ''), COALESCE(strategy, ''),
		       sgml_parsed, xbrl_parsed, sgml_timing_ms, xbrl_timing_ms, html_timing_ms,
		       xbrl_fact_count, created_at, updated_at
		FROM filings WHERE accession_number = $1`,
		accession,
	).Scan(
		&f.ID, &f.AccessionNumber, &f.CIK, &f.CompanyName, &f.FormType, &f.FilingDate,
		&f.PeriodOfReport, &f.AcceptanceDatetime, &f.SIC, &f.StateOfIncorporation,
		&f.FiscalYearEnd, &f.BusinessAddress, &f.BusinessPhone, &f.SizeMB, &f.SourceURL,
		&status, &tier, &strategy,
		&f.SGMLParsed, &f.XBRLParsed, &f.SGMLTimingMS, &f.XBRLTimingMS, &f.HTMLTimingMS,
		&f.XBRLFactCount, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("filings: get by accession %s: %w", accession, err)
	}
	f.ProcessingStatus = fdomain.ProcessingStatus(status)
	f.Tier = fdomain.Tier(tier)
	f.Strategy = fdomain.Strategy(strategy)
	return &f, nil
}

// ExistingAccessions returns the subset of candidates already persisted
func (s *pgStore) ExistingAccessions(ctx context.Context, candidates []string) (map[string]bool, error) {
	out := make(map[string]bool, len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(candidates))
	args := make([]any, len(candidates))
	for i, c := range candidates {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = c
	}

	rows, err := s.q.Query(ctx, fmt.Sprintf(
		`SELECT accession_number FROM filings WHERE accession_number IN (%s)`,
		strings.Join(placeholders, ", "),
	), args...)
	if err != nil {
		return nil, fmt.Errorf("filings: existing accessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var acc string
		if err := rows.Scan(&acc); err != nil {
			return nil, fmt.Errorf("filings: scan existing accession: %w", err)
		}
		out[acc] = true
	}
	return out, rows.Err()
}

// DailyMetrics recomputes the aggregate counters for one UTC date from
// processing_results joined against filings
func (s *pgStore) DailyMetrics(ctx context.Context, date time.Time) (fdomain.DailyMetrics, error) {
	day := date.Format("2006-01-02")
	m := fdomain.DailyMetrics{Date: day}

	err := s.q.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE true),
			count(*) FILTER (WHERE f.processing_status = 'completed'),
			count(*) FILTER (WHERE f.processing_status = 'failed'),
			count(*) FILTER (WHERE f.processing_status = 'dead_letter'),
			COALESCE(avg(pr.duration_ms), 0),
			COALESCE(sum(f.xbrl_fact_count), 0)
		FROM filings f
		LEFT JOIN processing_results pr ON pr.filing_id = f.id
		WHERE f.filing_date = $1`,
		day,
	).Scan(
		&m.TotalFilings, &m.CompletedFilings, &m.FailedFilings, &m.DeadLetterCount,
		&m.AvgDurationMS, &m.TotalXBRLFacts,
	)
	if err != nil {
		return fdomain.DailyMetrics{}, fmt.Errorf("filings: daily metrics for %s: %w", day, err)
	}
	return m, nil
}

// Cleanup deletes Filing rows older than retentionDays; ON DELETE CASCADE
// foreign keys remove every owned child row alongside them
func (s *pgStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM filings
		WHERE created_at < now() - make_interval(days => $1)`,
		retentionDays,
	)
	if err != nil {
		return 0, fmt.Errorf("filings: cleanup retention_days=%d: %w", retentionDays, err)
	}
	return tag.RowsAffected(), nil
}
