package edgarindex

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "ncsrpipe/internal/platform/errors"
)

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.body, f.err
}

const sampleIndex = `Description:           Daily Index of EDGAR Dissemination Feed
Last Data Received:     January 15, 2024
Comments:               webmaster@sec.gov
Anonymous FTP:          ftp://ftp.sec.gov/edgar/
Cloud HTTP:             https://www.sec.gov/Archives/
CIK|Company Name|Form Type|Date Filed|File Name


--------------------------------------------------------------------------------
CIK|Company Name|Form Type|Date Filed|File Name
--------------------------------------------------------------------------------
912057|EXAMPLE FUND TRUST|N-CSR|2024-01-15|edgar/data/912057/0000912057-24-000123.txt
912058|OTHER FUND INC|10-K|2024-01-15|edgar/data/912058/0000912058-24-000456.txt
912059|ANOTHER FUND|N-CSRS|2024-01-15|edgar/data/912059/0000912059-24-000789.txt
`

func TestFilingsFor_ParsesAndFilters(t *testing.T) {
	src := NewSource(&fakeFetcher{body: []byte(sampleIndex)})
	got, err := src.FilingsFor(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), []string{"N-CSR", "N-CSRS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 filtered descriptors, got %d", len(got))
	}
	if got[0].AccessionNumber != "0000912057-24-000123" {
		t.Fatalf("unexpected accession number: %q", got[0].AccessionNumber)
	}
	if got[0].CIK != "912057" {
		t.Fatalf("unexpected CIK: %q", got[0].CIK)
	}
}

func TestFilingsFor_EmptyWhitelistAcceptsAll(t *testing.T) {
	src := NewSource(&fakeFetcher{body: []byte(sampleIndex)})
	got, err := src.FilingsFor(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 descriptors, got %d", len(got))
	}
}

func TestFilingsFor_NotFoundYieldsEmptyNotError(t *testing.T) {
	src := NewSource(&fakeFetcher{err: perr.Newf(perr.ErrorCodeNotFound, "not found")})
	got, err := src.FilingsFor(context.Background(), time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("expected no error for 404, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil descriptors for 404, got %v", got)
	}
}

func TestFilingsFor_OtherErrorPropagates(t *testing.T) {
	src := NewSource(&fakeFetcher{err: errors.New("boom")})
	_, err := src.FilingsFor(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), nil)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestIndexURL_QuarterBoundary(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "https://www.sec.gov/Archives/edgar/daily-index/2024/QTR1/master.20240115.idx"},
		{time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "https://www.sec.gov/Archives/edgar/daily-index/2024/QTR2/master.20240401.idx"},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "https://www.sec.gov/Archives/edgar/daily-index/2024/QTR4/master.20241231.idx"},
	}
	for _, c := range cases {
		if got := indexURL(c.date); got != c.want {
			t.Errorf("indexURL(%s) = %q, want %q", c.date.Format("2006-01-02"), got, c.want)
		}
	}
}
