package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"genomefetch/internal/entrez"
	"genomefetch/internal/logging"
	"genomefetch/internal/metrics"
	"genomefetch/internal/pipeline"
	"genomefetch/internal/services"
	"genomefetch/internal/testsupport"
	"genomefetch/internal/workspace"
)

type fakeEntrez struct {
	count     int
	ids       []string
	links     []string
	summaries string
	searchErr error

	calls    []string
	lastTerm string
	retmax   int
	linkIDs  []string
}

func (f *fakeEntrez) ESearch(_ context.Context, db, term string, retmax int) (*entrez.SearchResult, error) {
	f.calls = append(f.calls, "esearch:"+db)
	f.lastTerm = term
	f.retmax = retmax
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &entrez.SearchResult{Count: f.count, IDs: f.ids}, nil
}

func (f *fakeEntrez) ELink(_ context.Context, dbFrom, dbTo string, ids []string) ([]string, error) {
	f.calls = append(f.calls, "elink:"+dbFrom+">"+dbTo)
	f.linkIDs = ids
	return f.links, nil
}

func (f *fakeEntrez) ESummary(_ context.Context, db string, ids []string) ([]byte, error) {
	f.calls = append(f.calls, "esummary:"+db+":"+strings.Join(ids, ","))
	return []byte(f.summaries), nil
}

type fakeFetcher struct {
	payloads map[string]string
	fetched  []string
	closed   bool
}

func (f *fakeFetcher) Fetch(_ context.Context, asm entrez.Assembly, dest string) (int64, error) {
	f.fetched = append(f.fetched, asm.Accession)
	content, ok := f.payloads[asm.Accession]
	if !ok {
		return 0, services.Wrap(services.ErrNotFound, "archive", "fetch", asm.ArchiveFile(), nil)
	}
	if content == "" {
		return 0, services.Wrap(services.ErrExternalService, "archive", "fetch", "connection reset", nil)
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

func summaryDoc(assemblies ...entrez.Assembly) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?><eSummaryResult><DocumentSummarySet status="OK">`)
	for i, asm := range assemblies {
		fmt.Fprintf(&b, `<DocumentSummary uid="%d"><AssemblyAccession>%s</AssemblyAccession><AssemblyName>%s</AssemblyName><Organism>%s</Organism></DocumentSummary>`,
			i+1, asm.Accession, asm.Name, asm.Organism)
	}
	b.WriteString(`</DocumentSummarySet></eSummaryResult>`)
	return b.String()
}

var (
	valid       = entrez.Assembly{Accession: "GCA_000002855.2", Name: "ASM285v2", Organism: "Aspergillus niger CBS 513.88"}
	placeholder = entrez.Assembly{Accession: "GCA_000230395.2", Name: "ASPNI v3.0", Organism: "Aspergillus niger ATCC 1015"}
	superseded  = entrez.Assembly{Accession: "GCA_000149845.1", Name: "old", Organism: "Aspergillus niger old"}
	broken      = entrez.Assembly{Accession: "GCA_900248155.1", Name: "Aspni NRRL3 v1", Organism: "Aspergillus niger NRRL3"}
)

func TestRunDeclineStopsBeforeLink(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := &fakeEntrez{count: 3, ids: []string{"1", "2", "3"}}
	fetcher := &fakeFetcher{}

	var asked int
	report, err := pipeline.New(cfg, client, fetcher).Run(context.Background(), pipeline.Options{
		SearchTerm: "Aspergillus niger",
		MaxRecords: 5,
		Confirm: func(_ context.Context, count int) (bool, error) {
			asked = count
			return false, nil
		},
	})
	if !errors.Is(err, pipeline.ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
	if asked != 3 {
		t.Fatalf("confirm saw count %d, want 3", asked)
	}
	if diff := cmp.Diff([]string{"esearch:bioproject"}, client.calls); diff != "" {
		t.Fatalf("unexpected remote calls (-want +got):\n%s", diff)
	}
	if len(fetcher.fetched) != 0 {
		t.Fatalf("no downloads expected, got %v", fetcher.fetched)
	}
	if report == nil || report.Matches != 3 {
		t.Fatalf("expected report with matches, got %+v", report)
	}
	if client.lastTerm != `((Aspergillus niger[Organism]) AND "genome sequencing"[Filter]) AND "bioproject assembly"[Filter]` {
		t.Fatalf("unexpected expression %q", client.lastTerm)
	}
	if client.retmax != 5 {
		t.Fatalf("retmax = %d, want 5", client.retmax)
	}
}

func TestRunSkipsExistingOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	existing := filepath.Join(cfg.Output.Dir, valid.OutputFile())
	if err := os.WriteFile(existing, []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &fakeEntrez{count: 1, ids: []string{"1"}, links: []string{"10"}, summaries: summaryDoc(valid)}
	fetcher := &fakeFetcher{}

	report, err := pipeline.New(cfg, client, fetcher).Run(context.Background(), pipeline.Options{SearchTerm: "Aspergillus niger"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(fetcher.fetched) != 0 {
		t.Fatalf("expected no download, got %v", fetcher.fetched)
	}
	data, err := os.ReadFile(existing)
	if err != nil || string(data) != "previous run" {
		t.Fatalf("existing output changed: %q, %v", data, err)
	}
	if report.Count(pipeline.StatusSkipped) != 1 || report.Produced != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRunKeepsExistingOutputOverLeftoverArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	existing := filepath.Join(cfg.Output.Dir, valid.OutputFile())
	testsupport.WriteGzip(t, filepath.Join(cfg.Output.Dir, valid.ArchiveFile()), testsupport.GenBankRecord("NT_166518", "acgtacgt"))
	if err := os.WriteFile(existing, []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A converted genome no longer in the search results, with its archive
	// left behind.
	orphan := "GCA_000000002.1_ASM2v1"
	testsupport.WriteGzip(t, filepath.Join(cfg.Output.Dir, orphan+"_genomic.gbff.gz"), testsupport.GenBankRecord("NC_2", "gggg"))
	if err := os.WriteFile(filepath.Join(cfg.Output.Dir, orphan+".gbk"), []byte("orphan run"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &fakeEntrez{count: 1, ids: []string{"1"}, links: []string{"10"}, summaries: summaryDoc(valid)}
	report, err := pipeline.New(cfg, client, &fakeFetcher{}).Run(context.Background(), pipeline.Options{SearchTerm: "Aspergillus niger"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	data, err := os.ReadFile(existing)
	if err != nil || string(data) != "previous run" {
		t.Fatalf("existing output rewritten: %q, %v", data, err)
	}
	if data, _ := os.ReadFile(filepath.Join(cfg.Output.Dir, orphan+".gbk")); string(data) != "orphan run" {
		t.Fatalf("orphan output rewritten: %q", data)
	}
	for _, name := range []string{valid.ArchiveFile(), orphan + "_genomic.gbff.gz"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", name, err)
		}
	}

	var got []string
	for _, o := range report.Outcomes {
		got = append(got, o.Folder+":"+string(o.Status))
	}
	want := []string{valid.Folder() + ":skipped", orphan + ":skipped"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if report.Produced != 0 {
		t.Fatalf("produced = %d, want 0", report.Produced)
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsFile("genomefetch.prom"))
	validContent := testsupport.GenBankRecord("NT_166518", strings.Repeat("acgt", 20)) +
		testsupport.GenBankRecord("NT_166519", "ggcc")

	// A previous interrupted run left an archive behind.
	leftover := "GCA_000000001.1_ASM1v1_genomic.gbff.gz"
	testsupport.WriteGzip(t, filepath.Join(cfg.Output.Dir, leftover), testsupport.GenBankRecord("NC_1", "aaaa"))

	// Stale link list from an earlier run must not leak into this one.
	if err := os.WriteFile(filepath.Join(cfg.Output.Dir, workspace.LinkListFile), []byte("999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &fakeEntrez{
		count:     4,
		ids:       []string{"1", "2", "3", "4"},
		links:     []string{"10", "20", "30", "40"},
		summaries: summaryDoc(valid, placeholder, superseded, broken),
	}
	fetcher := &fakeFetcher{payloads: map[string]string{
		valid.Accession:       string(testsupport.Gzip(t, validContent)),
		placeholder.Accession: string(testsupport.Gzip(t, testsupport.GenBankRecord("A1", "acgt")+testsupport.PlaceholderRecord("A2", 9000))),
		broken.Accession:      "",
	}}

	var confirmed bool
	rec := metrics.New()
	report, err := pipeline.New(cfg, client, fetcher, pipeline.WithMetrics(rec)).Run(context.Background(), pipeline.Options{
		SearchTerm:    "Aspergillus niger",
		OnlyAnnotated: true,
		Confirm: func(context.Context, int) (bool, error) {
			confirmed = true
			return true, nil
		},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !confirmed {
		t.Fatal("confirmation was not requested")
	}
	if !strings.Contains(client.lastTerm, `"bioproject protein"[Filter]`) {
		t.Fatalf("expected annotated expression, got %q", client.lastTerm)
	}
	if client.retmax != cfg.Entrez.MaxRecords {
		t.Fatalf("retmax = %d, want default %d", client.retmax, cfg.Entrez.MaxRecords)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, client.linkIDs); diff != "" {
		t.Fatalf("elink ids mismatch (-want +got):\n%s", diff)
	}
	if got := client.calls[len(client.calls)-1]; got != "esummary:assembly:10,20,30,40" {
		t.Fatalf("esummary call = %q", got)
	}

	got := map[string]pipeline.Status{}
	for _, o := range report.Outcomes {
		got[o.Folder] = o.Status
	}
	want := map[string]pipeline.Status{
		valid.Folder():           pipeline.StatusConverted,
		placeholder.Folder():     pipeline.StatusInvalid,
		superseded.Folder():      pipeline.StatusNotFound,
		broken.Folder():          pipeline.StatusFailed,
		"GCA_000000001.1_ASM1v1": pipeline.StatusConverted,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if report.Produced != 2 || report.Linked != 4 || report.Matches != 4 {
		t.Fatalf("unexpected counts: %+v", report)
	}

	out, err := os.ReadFile(filepath.Join(cfg.Output.Dir, valid.OutputFile()))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(out) != validContent {
		t.Fatalf("output does not hold every source record")
	}

	entries, err := os.ReadDir(cfg.Output.Dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	wantNames := []string{workspace.LockFile, "GCA_000000001.1_ASM1v1.gbk", valid.OutputFile()}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Fatalf("directory contents mismatch (-want +got):\n%s", diff)
	}

	prom, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(prom), `genomefetch_genomes_total{outcome="converted"} 2`) {
		t.Fatalf("metrics missing converted count:\n%s", prom)
	}
}

func TestRunKeepTemp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Output.KeepTemp = true
	client := &fakeEntrez{count: 1, ids: []string{"1"}, links: []string{"10", "11"}, summaries: summaryDoc()}

	if _, err := pipeline.New(cfg, client, &fakeFetcher{}).Run(context.Background(), pipeline.Options{SearchTerm: "x"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, workspace.LinkListFile))
	if err != nil {
		t.Fatalf("expected link list kept: %v", err)
	}
	if string(data) != "10\n11\n" {
		t.Fatalf("link list = %q", data)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, workspace.SummaryFile)); err != nil {
		t.Fatalf("expected summary kept: %v", err)
	}
}

func TestRunSearchFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := &fakeEntrez{searchErr: errors.New("esearch returned 500")}

	var logs bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &logs})
	if err != nil {
		t.Fatal(err)
	}

	_, err = pipeline.New(cfg, client, &fakeFetcher{}, pipeline.WithLogger(logger)).Run(context.Background(), pipeline.Options{SearchTerm: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := strings.Count(logs.String(), `"event_type":"run_failed"`); n != 1 {
		t.Fatalf("expected the fatal error logged once, got %d:\n%s", n, logs.String())
	}
	if !strings.Contains(logs.String(), "esearch returned 500") {
		t.Fatalf("fatal log missing cause:\n%s", logs.String())
	}
}

func TestRunCorruptArchiveIsKept(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	corrupt := filepath.Join(cfg.Output.Dir, valid.ArchiveFile())
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(corrupt, []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}

	var logs bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &logs})
	if err != nil {
		t.Fatal(err)
	}
	client := &fakeEntrez{count: 1, ids: []string{"1"}, links: []string{"10"}, summaries: summaryDoc(superseded)}
	report, err := pipeline.New(cfg, client, &fakeFetcher{}, pipeline.WithLogger(logger)).Run(context.Background(), pipeline.Options{SearchTerm: "x"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Count(pipeline.StatusFailed) != 1 {
		t.Fatalf("expected one failed outcome, got %+v", report.Outcomes)
	}
	if _, err := os.Stat(corrupt); err != nil {
		t.Fatalf("corrupt archive should be kept: %v", err)
	}
	if !strings.Contains(logs.String(), "archive kept for inspection") {
		t.Fatalf("expected inspection hint in logs:\n%s", logs.String())
	}
}

func TestRunRequiresEmail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Entrez.Email = ""
	client := &fakeEntrez{}

	_, err := pipeline.New(cfg, client, &fakeFetcher{}).Run(context.Background(), pipeline.Options{SearchTerm: "x"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("no remote calls expected, got %v", client.calls)
	}
}

func TestRunSummaryParseFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := &fakeEntrez{
		count:     1,
		ids:       []string{"1"},
		links:     []string{"10"},
		summaries: `<eSummaryResult><DocumentSummarySet><DocumentSummary uid="10"><AssemblyAccession>GCA_1.1</AssemblyAccession></DocumentSummary></DocumentSummarySet></eSummaryResult>`,
	}
	fetcher := &fakeFetcher{}
	_, err := pipeline.New(cfg, client, fetcher).Run(context.Background(), pipeline.Options{SearchTerm: "x"})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if len(fetcher.fetched) != 0 {
		t.Fatal("no downloads expected after parse failure")
	}
}
