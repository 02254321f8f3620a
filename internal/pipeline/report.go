package pipeline

import (
	"time"

	"genomefetch/internal/entrez"
)

// Status classifies what happened to one genome.
type Status string

const (
	// StatusConverted means the archive validated and a .gbk was written.
	StatusConverted Status = "converted"
	// StatusSkipped means a .gbk already existed, so nothing was fetched.
	StatusSkipped Status = "skipped"
	// StatusNotFound means the archive has no file for the assembly, usually
	// because it was superseded.
	StatusNotFound Status = "not_found"
	// StatusFailed means the transfer or conversion failed for another reason.
	StatusFailed Status = "failed"
	// StatusInvalid means the archive held placeholder records and was removed.
	StatusInvalid Status = "invalid"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusConverted, StatusSkipped, StatusNotFound, StatusInvalid, StatusFailed}

// Outcome is the result for one genome.
type Outcome struct {
	Accession  string `json:"accession,omitempty"`
	Name       string `json:"name,omitempty"`
	Organism   string `json:"organism,omitempty"`
	Folder     string `json:"folder"`
	Status     Status `json:"status"`
	Output     string `json:"output,omitempty"`
	Records    int    `json:"records,omitempty"`
	Downloaded int64  `json:"downloaded_bytes,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func outcomeFor(asm entrez.Assembly, status Status) Outcome {
	return Outcome{
		Accession: asm.Accession,
		Name:      asm.Name,
		Organism:  asm.Organism,
		Folder:    asm.Folder(),
		Status:    status,
	}
}

// Report summarizes a run.
type Report struct {
	RunID      string    `json:"run_id"`
	SearchTerm string    `json:"search_term"`
	Expression string    `json:"expression"`
	Matches    int       `json:"matches"`
	ProjectIDs int       `json:"project_ids"`
	Linked     int       `json:"linked"`
	Outcomes   []Outcome `json:"outcomes"`
	Produced   int       `json:"produced"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
}

// Count returns how many outcomes have status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
