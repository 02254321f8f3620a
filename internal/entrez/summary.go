package entrez

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"

	"genomefetch/internal/services"
)

const (
	archiveSuffix = "_genomic.gbff.gz"
	outputExt     = ".gbk"
)

// Assembly is the metadata genomefetch needs for one assembly record.
type Assembly struct {
	UID       string `json:"uid,omitempty"`
	Accession string `json:"accession"`
	Name      string `json:"name"`
	Organism  string `json:"organism"`
}

// Folder returns the archive folder name: accession and assembly name joined
// by an underscore, with spaces in the name replaced by underscores.
func (a Assembly) Folder() string {
	return a.Accession + "_" + strings.ReplaceAll(a.Name, " ", "_")
}

// ArchiveFile returns the compressed GenBank file name inside Folder.
func (a Assembly) ArchiveFile() string {
	return a.Folder() + archiveSuffix
}

// OutputFile returns the name of the decompressed GenBank output.
func (a Assembly) OutputFile() string {
	return OutputFileFor(a.Folder())
}

// OutputFileFor returns the GenBank output name for an archive folder.
func OutputFileFor(folder string) string {
	return folder + outputExt
}

// FolderFromArchiveFile strips the compressed file suffix. ok is false when
// name does not carry it.
func FolderFromArchiveFile(name string) (string, bool) {
	if !strings.HasSuffix(name, archiveSuffix) {
		return "", false
	}
	folder := strings.TrimSuffix(name, archiveSuffix)
	return folder, folder != ""
}

// ArchivePattern is the glob matching downloaded archive files.
const ArchivePattern = "*" + archiveSuffix

type documentSummary struct {
	UID       string   `xml:"uid,attr"`
	Accession []string `xml:"AssemblyAccession"`
	Name      []string `xml:"AssemblyName"`
	Organism  []string `xml:"Organism"`
}

// ParseSummaries decodes every DocumentSummary in an esummary payload.
// A summary missing its accession, assembly name, or organism is an error.
// Duplicate accessions are dropped case-insensitively, keeping the first.
func ParseSummaries(r io.Reader) ([]Assembly, error) {
	decoder := xml.NewDecoder(r)
	fold := cases.Fold()
	seen := make(map[string]struct{})
	var out []Assembly
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, component, "parse summaries", "malformed xml", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "ERROR":
			var msg string
			if err := decoder.DecodeElement(&msg, &start); err != nil {
				return nil, services.Wrap(services.ErrValidation, component, "parse summaries", "malformed error element", err)
			}
			return nil, services.Wrap(services.ErrExternalService, component, "esummary", strings.TrimSpace(msg), nil)
		case "DocumentSummary":
			var doc documentSummary
			if err := decoder.DecodeElement(&doc, &start); err != nil {
				return nil, services.Wrap(services.ErrValidation, component, "parse summaries", "malformed document summary", err)
			}
			asm, err := doc.assembly()
			if err != nil {
				return nil, err
			}
			key := fold.String(asm.Accession)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, asm)
		}
	}
	return out, nil
}

func (d documentSummary) assembly() (Assembly, error) {
	asm := Assembly{
		UID:       strings.TrimSpace(d.UID),
		Accession: first(d.Accession),
		Name:      first(d.Name),
		Organism:  first(d.Organism),
	}
	var missing []string
	if asm.Accession == "" {
		missing = append(missing, "AssemblyAccession")
	}
	if asm.Name == "" {
		missing = append(missing, "AssemblyName")
	}
	if asm.Organism == "" {
		missing = append(missing, "Organism")
	}
	if len(missing) > 0 {
		uid := asm.UID
		if uid == "" {
			uid = "<unknown>"
		}
		msg := fmt.Sprintf("document summary %s missing %s", uid, strings.Join(missing, ", "))
		return Assembly{}, services.Wrap(services.ErrValidation, component, "parse summaries", msg, nil)
	}
	return asm, nil
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
