// Package service implements the orchestrator (C8): the per-date and
// per-night-batch drivers that compose discovery, size routing, fetch,
// parse, extraction, and persistence into one fault-isolated pipeline.
// Grounded on the teacher's services/backfill/service.Service: a bounded
// worker pool over a unit of discovered work, with per-unit failures
// routed to a side channel instead of aborting the run (spec.md §4.8)
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ncsrpipe/internal/adapters/parse"
	pdomain "ncsrpipe/internal/adapters/parse/domain"
	"ncsrpipe/internal/platform/logger"

	ddomain "ncsrpipe/internal/services/deadletter/domain"
	fdomain "ncsrpipe/internal/services/filings/domain"
	mdomain "ncsrpipe/internal/services/metrics/domain"
	"ncsrpipe/internal/services/orchestrator/domain"
	tierdomain "ncsrpipe/internal/services/tier/domain"
)

const defaultWorkers = 5

// Config tunes the orchestrator's run behavior
type Config struct {
	// Workers bounds concurrent in-flight filings per RunDate/RunNightBatch
	// call. Defaults to 5 when <= 0
	Workers int
}

// Params are the collaborators the orchestrator composes. Every field is
// required except Cfg
type Params struct {
	Discover   domain.Discoverer
	Sizer      domain.Sizer
	Fetch      domain.BodyFetcher
	Parse      domain.Parser
	TierRouter domain.TierRouter
	Extract    domain.ExtractFunc

	Filings    fdomain.RunnerPort
	DeadLetter ddomain.RunnerPort
	Metrics    mdomain.RunnerPort

	Cfg Config
}

// Service drives end-to-end filing processing
type Service struct {
	discover   domain.Discoverer
	sizer      domain.Sizer
	fetch      domain.BodyFetcher
	parser     domain.Parser
	tierRouter domain.TierRouter
	extract    domain.ExtractFunc

	filings    fdomain.RunnerPort
	deadletter ddomain.RunnerPort
	metrics    mdomain.RunnerPort

	cfg Config
}

// New constructs the orchestrator, panicking on a nil required collaborator
// so a misconfigured wiring fails fast at startup rather than mid-run
func New(p Params) *Service {
	switch {
	case p.Discover == nil:
		panic("orchestrator.Service requires a non nil Discoverer")
	case p.Sizer == nil:
		panic("orchestrator.Service requires a non nil Sizer")
	case p.Fetch == nil:
		panic("orchestrator.Service requires a non nil BodyFetcher")
	case p.Parse == nil:
		panic("orchestrator.Service requires a non nil Parser")
	case p.TierRouter == nil:
		panic("orchestrator.Service requires a non nil TierRouter")
	case p.Extract == nil:
		panic("orchestrator.Service requires a non nil ExtractFunc")
	case p.Filings == nil:
		panic("orchestrator.Service requires a non nil filings RunnerPort")
	case p.DeadLetter == nil:
		panic("orchestrator.Service requires a non nil deadletter RunnerPort")
	case p.Metrics == nil:
		panic("orchestrator.Service requires a non nil metrics RunnerPort")
	}
	cfg := p.Cfg
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Service{
		discover: p.Discover, sizer: p.Sizer, fetch: p.Fetch, parser: p.Parse,
		tierRouter: p.TierRouter, extract: p.Extract,
		filings: p.Filings, deadletter: p.DeadLetter, metrics: p.Metrics,
		cfg: cfg,
	}
}

// RunDate discovers every filing published for date matching formTypes,
// skips ones already persisted, and processes the rest under a bounded
// worker pool. A single filing's failure is isolated to that filing; it
// never aborts the run for the rest of the date (spec.md §4.8, "Fault
// isolation")
func (s *Service) RunDate(ctx context.Context, date time.Time, formTypes []string, maxFilings int) (domain.Summary, error) {
	dateStr := date.Format("2006-01-02")
	descriptors, err := s.discover.FilingsFor(ctx, date, formTypes)
	if err != nil {
		return domain.Summary{Date: dateStr}, err
	}
	summary := domain.Summary{Date: dateStr, Discovered: len(descriptors)}
	if len(descriptors) == 0 {
		return summary, nil
	}

	accessions := make([]string, len(descriptors))
	for i, d := range descriptors {
		accessions[i] = d.AccessionNumber
	}
	existing, err := s.filings.ExistingAccessions(ctx, accessions)
	if err != nil {
		return summary, err
	}

	todo := make([]domain.Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if existing[d.AccessionNumber] {
			summary.SkippedExisting++
			continue
		}
		todo = append(todo, domain.Descriptor{
			AccessionNumber: d.AccessionNumber,
			CIK:             d.CIK,
			CompanyName:     d.CompanyName,
			FormType:        d.FormType,
			FilingDate:      d.FilingDate,
			SourceURL:       d.SourceURL,
		})
	}
	if maxFilings > 0 && len(todo) > maxFilings {
		todo = todo[:maxFilings]
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, d := range todo {
		d := d
		g.Go(func() error {
			outcome := s.processOne(gctx, d)
			mu.Lock()
			summary.Attempted++
			switch outcome {
			case outcomeCompleted:
				summary.Completed++
			case outcomeDeadLetter:
				summary.DeadLettered++
			default:
				summary.Failed++
			}
			mu.Unlock()
			return nil // fault boundary: a filing's failure never aborts the group
		})
	}
	_ = g.Wait()
	return summary, nil
}

// RunBackfill runs RunDate for every day in [start, end], inclusive, in
// calendar order. It stops and returns the summaries gathered so far if
// discovery itself fails for a date (as opposed to an individual filing
// failing, which RunDate already isolates)
func (s *Service) RunBackfill(ctx context.Context, start, end time.Time, formTypes []string, maxFilings int) ([]domain.Summary, error) {
	var summaries []domain.Summary
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		sum, err := s.RunDate(ctx, d, formTypes, maxFilings)
		summaries = append(summaries, sum)
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

// RunNightBatch serves up to limit eligible dead-letter entries within
// maxSizeMB and reprocesses each at its suggested tier
func (s *Service) RunNightBatch(ctx context.Context, limit int, maxSizeMB float64) (domain.NightBatchSummary, error) {
	entries, err := s.deadletter.GetNightBatch(ctx, limit, maxSizeMB)
	if err != nil {
		return domain.NightBatchSummary{}, err
	}
	summary := domain.NightBatchSummary{Served: len(entries)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			outcome := s.retryEntry(gctx, e)
			mu.Lock()
			if outcome == outcomeCompleted {
				summary.Completed++
			} else {
				summary.Failed++
				summary.StillEligible++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return summary, nil
}

// Cleanup deletes filings (and their cascading children) older than
// retentionDays
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	return s.filings.Cleanup(ctx, retentionDays)
}

type outcome string

const (
	outcomeCompleted  outcome = "completed"
	outcomeFailed     outcome = "failed"
	outcomeDeadLetter outcome = "dead_letter"
)

// processOne runs one filing through the full pipeline: size probe, tier
// routing, fetch, timeout-guarded parse, tier-gated extraction, and save.
// It never panics out to the caller; an *parse.OOMError recovered from the
// parse goroutine is translated into a memory dead-letter failure
func (s *Service) processOne(ctx context.Context, d domain.Descriptor) outcome {
	l := logger.C(ctx).With().Str("mod", "orchestrator").Str("accession", d.AccessionNumber).Logger()

	mb, ok, err := s.sizer.Size(ctx, d.SourceURL)
	if err != nil {
		l.Warn().Err(err).Msg("orchestrator: size probe failed")
	}

	var body []byte
	if !ok {
		b, ferr := s.fetch.Fetch(ctx, d.SourceURL)
		if ferr != nil {
			return s.failBeforeFiling(ctx, d, 0, ddomain.FailureNetwork)
		}
		body = b
		mb = float64(len(b)) / (1024 * 1024)
	}

	tier := s.tierRouter.TierFor(mb)
	filingID, err := s.filings.EnsureFiling(ctx, fdomain.NewFiling{
		AccessionNumber: d.AccessionNumber,
		CIK:             d.CIK,
		CompanyName:     d.CompanyName,
		FormType:        d.FormType,
		FilingDate:      d.FilingDate,
		SizeMB:          mb,
		SourceURL:       d.SourceURL,
	})
	if err != nil {
		l.Error().Err(err).Msg("orchestrator: ensure filing failed")
		return outcomeFailed
	}

	if tier == tierdomain.TierDeadLetter {
		return s.deadLetterNeverAttempted(ctx, filingID, d, mb)
	}

	if serr := s.filings.SetStatus(ctx, filingID, fdomain.StatusProcessing); serr != nil {
		l.Warn().Err(serr).Msg("orchestrator: set status processing failed")
	}

	if body == nil {
		fetchStart := time.Now()
		b, ferr := s.fetch.Fetch(ctx, d.SourceURL)
		if ferr != nil {
			s.logStage(ctx, filingID, "fetch", fdomain.LogStatusFailed, ferr.Error(), time.Since(fetchStart))
			return s.failExisting(ctx, filingID, d, mb, ddomain.FailureNetwork)
		}
		s.logStage(ctx, filingID, "fetch", fdomain.LogStatusOK, "", time.Since(fetchStart))
		body = b
	}

	t0 := time.Now()
	result, perr := s.parseWithTimeout(ctx, body, tier.Timeout())
	if perr != nil {
		s.logStage(ctx, filingID, "parse", fdomain.LogStatusFailed, perr.Error(), time.Since(t0))
		if isOOM(perr) {
			return s.failExisting(ctx, filingID, d, mb, ddomain.FailureMemory)
		}
		return s.failExisting(ctx, filingID, d, mb, ddomain.FailureTimeout)
	}

	result = s.extract(tier, body, result)

	// The pipeline never raises for ordinary parser errors; a failed,
	// non-exceptional Result is itself treated as the parsing failure
	// trigger for dead-letter routing (spec.md §4.4/§4.7)
	if !result.Success {
		s.logStage(ctx, filingID, "parse", fdomain.LogStatusFailed, result.Error, time.Since(t0))
		return s.failExisting(ctx, filingID, d, mb, ddomain.FailureParsing)
	}
	s.logStage(ctx, filingID, "parse", fdomain.LogStatusOK, "", time.Since(t0))

	persistStart := time.Now()
	if serr := s.filings.Save(ctx, filingID, fdomain.Tier(tier), result); serr != nil {
		s.logStage(ctx, filingID, "persist", fdomain.LogStatusFailed, serr.Error(), time.Since(persistStart))
		return s.failExisting(ctx, filingID, d, mb, ddomain.FailureProcessing)
	}
	s.logStage(ctx, filingID, "persist", fdomain.LogStatusOK, "", time.Since(persistStart))

	s.metrics.Record(d.FilingDate, string(tier), time.Since(t0).Milliseconds(), mb > 30, false)
	return outcomeCompleted
}

// logStage records one ProcessingLog row for a pipeline stage. Best-effort:
// a logging failure is itself only logged, never routed to the dead-letter
// queue (SPEC_FULL.md §3, ProcessingLog)
func (s *Service) logStage(ctx context.Context, filingID int64, operation string, status fdomain.LogStatus, message string, dur time.Duration) {
	if err := s.filings.LogOperation(ctx, filingID, operation, status, message, dur.Milliseconds()); err != nil {
		logger.C(ctx).Warn().Err(err).Str("operation", operation).Int64("filing_id", filingID).Msg("orchestrator: log stage failed")
	}
}

// retryEntry reprocesses one dead-letter entry served from a night batch
func (s *Service) retryEntry(ctx context.Context, e ddomain.Entry) outcome {
	l := logger.C(ctx).With().Str("mod", "orchestrator").Int64("filing_id", e.FilingID).Logger()

	filing, err := s.filings.GetByAccession(ctx, e.AccessionNumber)
	if err != nil || filing == nil {
		l.Error().Err(err).Msg("orchestrator: night batch lookup failed")
		_ = s.deadletter.MarkProcessed(ctx, e.FilingID, false, e.FailureType)
		return outcomeFailed
	}

	tier := s.tierRouter.TierFor(e.SizeMB)
	if tier == tierdomain.TierDeadLetter {
		_ = s.deadletter.MarkProcessed(ctx, e.FilingID, false, ddomain.FailureFileTooLarge)
		return outcomeFailed
	}

	if serr := s.filings.SetStatus(ctx, e.FilingID, fdomain.StatusProcessing); serr != nil {
		l.Warn().Err(serr).Msg("orchestrator: set status processing failed")
	}

	body, ferr := s.fetch.Fetch(ctx, filing.SourceURL)
	if ferr != nil {
		return s.retryFailed(ctx, e.FilingID, filing.FilingDate, ddomain.FailureNetwork)
	}

	t0 := time.Now()
	result, perr := s.parseWithTimeout(ctx, body, tier.Timeout())
	if perr != nil {
		ft := ddomain.FailureTimeout
		if isOOM(perr) {
			ft = ddomain.FailureMemory
		}
		return s.retryFailed(ctx, e.FilingID, filing.FilingDate, ft)
	}

	result = s.extract(tier, body, result)
	if !result.Success {
		return s.retryFailed(ctx, e.FilingID, filing.FilingDate, ddomain.FailureParsing)
	}

	if serr := s.filings.Save(ctx, e.FilingID, fdomain.Tier(tier), result); serr != nil {
		return s.retryFailed(ctx, e.FilingID, filing.FilingDate, ddomain.FailureProcessing)
	}

	_ = s.deadletter.MarkProcessed(ctx, e.FilingID, true, "")
	s.metrics.Record(filing.FilingDate, string(tier), time.Since(t0).Milliseconds(), e.SizeMB > 30, false)
	return outcomeCompleted
}

func (s *Service) retryFailed(ctx context.Context, filingID int64, filingDate string, ft ddomain.FailureType) outcome {
	_ = s.deadletter.MarkProcessed(ctx, filingID, false, ft)
	_ = s.filings.SetStatus(ctx, filingID, fdomain.StatusFailed)
	s.metrics.Record(filingDate, "", 0, false, false)
	return outcomeFailed
}

// deadLetterNeverAttempted routes a filing whose probed size already
// exceeds the largest tier threshold straight to the dead-letter queue
// without ever calling Fetch or Parse (spec.md §4.8, "oversize filings are
// never attempted")
func (s *Service) deadLetterNeverAttempted(ctx context.Context, filingID int64, d domain.Descriptor, mb float64) outcome {
	l := logger.C(ctx).With().Str("mod", "orchestrator").Int64("filing_id", filingID).Logger()
	if _, err := s.deadletter.AddFiling(ctx, ddomain.AddFilingInput{
		FilingID: filingID, AccessionNumber: d.AccessionNumber, SizeMB: mb, FailureType: ddomain.FailureFileTooLarge,
	}); err != nil {
		l.Error().Err(err).Msg("orchestrator: dead-letter add failed")
	}
	if err := s.filings.SetStatus(ctx, filingID, fdomain.StatusDeadLetter); err != nil {
		l.Error().Err(err).Msg("orchestrator: set status dead_letter failed")
	}
	s.metrics.Record(d.FilingDate, "dead_letter", 0, true, true)
	return outcomeDeadLetter
}

// failBeforeFiling handles a failure that occurred before a Filing row
// could be created (the size probe reported no Content-Length and the
// fallback body fetch itself failed)
func (s *Service) failBeforeFiling(ctx context.Context, d domain.Descriptor, mb float64, ft ddomain.FailureType) outcome {
	l := logger.C(ctx).With().Str("mod", "orchestrator").Str("accession", d.AccessionNumber).Logger()
	filingID, err := s.filings.EnsureFiling(ctx, fdomain.NewFiling{
		AccessionNumber: d.AccessionNumber,
		CIK:             d.CIK,
		CompanyName:     d.CompanyName,
		FormType:        d.FormType,
		FilingDate:      d.FilingDate,
		SizeMB:          mb,
		SourceURL:       d.SourceURL,
	})
	if err != nil {
		l.Error().Err(err).Msg("orchestrator: ensure filing failed after fetch failure")
		return outcomeFailed
	}
	return s.failExisting(ctx, filingID, d, mb, ft)
}

// failExisting records a failed attempt for a filing that already has a
// row, routing it to the dead-letter queue and marking the Filing row
// failed (eligible for retry) or dead_letter (exhausted), matching whatever
// the dead-letter queue decided (spec.md §9, single-writer discipline)
func (s *Service) failExisting(ctx context.Context, filingID int64, d domain.Descriptor, mb float64, ft ddomain.FailureType) outcome {
	l := logger.C(ctx).With().Str("mod", "orchestrator").Int64("filing_id", filingID).Logger()

	entry, err := s.deadletter.AddFiling(ctx, ddomain.AddFilingInput{
		FilingID: filingID, AccessionNumber: d.AccessionNumber, SizeMB: mb, FailureType: ft,
	})
	status := fdomain.StatusFailed
	if err != nil {
		l.Error().Err(err).Msg("orchestrator: dead-letter add failed")
	} else if !entry.RetryEligible {
		status = fdomain.StatusDeadLetter
	}

	if serr := s.filings.SetStatus(ctx, filingID, status); serr != nil {
		l.Error().Err(serr).Msg("orchestrator: set status failed")
	}

	deadLettered := status == fdomain.StatusDeadLetter
	s.metrics.Record(d.FilingDate, "", 0, mb > 30, deadLettered)
	if deadLettered {
		return outcomeDeadLetter
	}
	return outcomeFailed
}

// parseWithTimeout runs the parser in its own goroutine so a per-tier
// deadline can be enforced even though Parser.Parse takes no context, and
// so an *parse.OOMError panic is recovered without killing the calling
// goroutine (spec.md §4.4, "Error behavior"; §4.8, "Tier timeouts")
func (s *Service) parseWithTimeout(ctx context.Context, raw []byte, timeout time.Duration) (pdomain.Result, error) {
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type out struct {
		res pdomain.Result
		err error
	}
	ch := make(chan out, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				if oom, ok := r.(*parse.OOMError); ok {
					ch <- out{err: oom}
					return
				}
				ch <- out{err: fmt.Errorf("parse: panic: %v", r)}
			}
		}()
		ch <- out{res: s.parser.Parse(raw)}
	}()

	select {
	case o := <-ch:
		return o.res, o.err
	case <-ctx2.Done():
		return pdomain.Result{}, ctx2.Err()
	}
}

func isOOM(err error) bool {
	_, ok := err.(*parse.OOMError)
	return ok
}
