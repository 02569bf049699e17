// Package edgarindex discovers filing descriptors for a target date by
// streaming the SEC EDGAR daily master index (C2). Modeled on the teacher's
// gharchive.Reader: a scanner-based streaming parse rather than a full
// slurp-then-split, applied to the fixed pipe-delimited master index format
// instead of gzip-NDJSON
package edgarindex

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	perr "ncsrpipe/internal/platform/errors"
)

const (
	baseURL = "https://www.sec.gov/Archives/edgar/daily-index"

	// headerLines is the number of fixed preamble lines the master index
	// always carries before the "CIK|Company Name|..." records begin
	headerLines = 11

	maxScanTokenSize = 4 * 1024 * 1024
)

// Fetcher retrieves bytes for a URL; satisfied by *secfetch.Client
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Descriptor is one discovered filing, ready to be handed to the
// process-filing path
type Descriptor struct {
	AccessionNumber string
	CIK             string
	CompanyName     string
	FormType        string
	FilingDate      string
	SourceURL       string
}

// Source discovers filing descriptors from the EDGAR daily index
type Source struct {
	fetch Fetcher
}

// NewSource constructs a Source over the given byte fetcher
func NewSource(fetch Fetcher) *Source {
	return &Source{fetch: fetch}
}

// indexURL builds the master index URL for date, e.g.
// https://www.sec.gov/Archives/edgar/daily-index/2024/QTR1/master.20240115.idx
func indexURL(date time.Time) string {
	q := (int(date.Month())-1)/3 + 1
	return fmt.Sprintf("%s/%04d/QTR%d/master.%s.idx", baseURL, date.Year(), q, date.Format("20060102"))
}

// FilingsFor fetches the master index for date and returns descriptors
// filtered by formTypes (a whitelist; empty means accept all). A 404
// response (no index published for that date, e.g. a weekend or holiday)
// yields an empty, non-error result
func (s *Source) FilingsFor(ctx context.Context, date time.Time, formTypes []string) ([]Descriptor, error) {
	url := indexURL(date)
	body, err := s.fetch.Fetch(ctx, url)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return nil, nil
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "edgarindex: fetch master index failed: %s", url)
	}

	want := make(map[string]bool, len(formTypes))
	for _, ft := range formTypes {
		want[strings.ToUpper(strings.TrimSpace(ft))] = true
	}

	sc := bufio.NewScanner(strings.NewReader(string(body)))
	sc.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	var descriptors []Descriptor
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo <= headerLines {
			continue
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		d, ok := parseLine(line)
		if !ok {
			continue
		}
		if len(want) > 0 && !want[strings.ToUpper(d.FormType)] {
			continue
		}
		descriptors = append(descriptors, d)
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "edgarindex: scan master index failed: %s", url)
	}
	return descriptors, nil
}

// parseLine parses one "CIK|Company Name|Form Type|Date Filed|edgar/data/..."
// record. The accession number is the final path segment of the file path
// with the .txt suffix stripped
func parseLine(line string) (Descriptor, bool) {
	fields := strings.Split(line, "|")
	if len(fields) != 5 {
		return Descriptor{}, false
	}
	cik := strings.TrimSpace(fields[0])
	if _, err := strconv.Atoi(cik); err != nil {
		return Descriptor{}, false
	}
	path := strings.TrimSpace(fields[4])
	segs := strings.Split(path, "/")
	if len(segs) == 0 {
		return Descriptor{}, false
	}
	accession := strings.TrimSuffix(segs[len(segs)-1], ".txt")
	if accession == "" {
		return Descriptor{}, false
	}

	return Descriptor{
		AccessionNumber: accession,
		CIK:             cik,
		CompanyName:     strings.TrimSpace(fields[1]),
		FormType:        strings.TrimSpace(fields[2]),
		FilingDate:      strings.TrimSpace(fields[3]),
		SourceURL:       "https://www.sec.gov/Archives/" + path,
	}, true
}
