package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"genomefetch/internal/config"
	"genomefetch/internal/testsupport"
)

type fakeNCBI struct {
	server *httptest.Server

	mu       sync.Mutex
	retmax   string
	term     string
	elinks   int
	archives map[string][]byte
}

type genome struct {
	accession string
	name      string
	organism  string
}

func (g genome) file() string {
	folder := g.accession + "_" + strings.ReplaceAll(g.name, " ", "_")
	return folder + "/" + folder + "_genomic.gbff.gz"
}

// newFakeNCBI serves the three E-utilities endpoints and an HTTP genome
// archive under /genomes/all.
func newFakeNCBI(t *testing.T, genomes []genome, archives map[string][]byte) *fakeNCBI {
	t.Helper()

	f := &fakeNCBI{archives: archives}
	mux := http.NewServeMux()
	mux.HandleFunc("/eutils/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.retmax = r.URL.Query().Get("retmax")
		f.term = r.URL.Query().Get("term")
		f.mu.Unlock()
		var ids strings.Builder
		for i := range genomes {
			fmt.Fprintf(&ids, "<Id>%d</Id>", 100+i)
		}
		fmt.Fprintf(w, `<eSearchResult><Count>%d</Count><RetMax>%d</RetMax><RetStart>0</RetStart><IdList>%s</IdList></eSearchResult>`,
			len(genomes), len(genomes), ids.String())
	})
	mux.HandleFunc("/eutils/elink.fcgi", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.elinks++
		f.mu.Unlock()
		var links strings.Builder
		for i := range genomes {
			fmt.Fprintf(&links, "<Link><Id>%d</Id></Link>", 900+i)
		}
		fmt.Fprintf(w, `<eLinkResult><LinkSet><DbFrom>bioproject</DbFrom><LinkSetDb><DbTo>assembly</DbTo><LinkName>bioproject_assembly</LinkName>%s</LinkSetDb></LinkSet></eLinkResult>`,
			links.String())
	})
	mux.HandleFunc("/eutils/esummary.fcgi", func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?><eSummaryResult><DocumentSummarySet status="OK">`)
		for i, g := range genomes {
			fmt.Fprintf(&b, `<DocumentSummary uid="%d"><AssemblyAccession>%s</AssemblyAccession><AssemblyName>%s</AssemblyName><Organism>%s</Organism></DocumentSummary>`,
				900+i, g.accession, g.name, g.organism)
		}
		b.WriteString(`</DocumentSummarySet></eSummaryResult>`)
		_, _ = w.Write([]byte(b.String()))
	})
	mux.HandleFunc("/genomes/all/", func(w http.ResponseWriter, r *http.Request) {
		payload, ok := f.archives[strings.TrimPrefix(r.URL.Path, "/genomes/all/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// search returns the retmax and term of the last esearch request.
func (f *fakeNCBI) search() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retmax, f.term
}

func (f *fakeNCBI) elinkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elinks
}

// writeConfig renders cfg to a TOML file the CLI can load with --config.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// isolateEnv keeps the developer's home config and NCBI_EMAIL out of tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NCBI_EMAIL", "")
	t.Setenv("NO_COLOR", "1")
}

func runCLI(t *testing.T, args []string, stdin string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}
