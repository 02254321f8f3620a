package pipeline

import "genomefetch/internal/entrez"

// Observer receives progress as a run advances. Implementations render
// console output; the pipeline itself only logs.
type Observer interface {
	SearchCompleted(expression string, count int)
	Linked(count int)
	SummariesParsed(count int)
	Downloaded(asm entrez.Assembly, bytes int64)
	Loading(archive string)
	Outcome(o Outcome)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) SearchCompleted(string, int)       {}
func (NopObserver) Linked(int)                        {}
func (NopObserver) SummariesParsed(int)               {}
func (NopObserver) Downloaded(entrez.Assembly, int64) {}
func (NopObserver) Loading(string)                    {}
func (NopObserver) Outcome(Outcome)                   {}
