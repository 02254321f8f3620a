// Package query builds Entrez BioProject search expressions.
package query

import "fmt"

const (
	filterGenomeSequencing = `"genome sequencing"[Filter]`
	filterProtein          = `"bioproject protein"[Filter]`
	filterAssembly         = `"bioproject assembly"[Filter]`
)

// Build composes the BioProject filter expression for organism. When
// onlyAnnotated is set the expression also requires protein annotation.
// The organism string is passed through verbatim; Entrez reports malformed
// terms itself.
func Build(organism string, onlyAnnotated bool) string {
	expr := fmt.Sprintf("(%s[Organism]) AND %s", organism, filterGenomeSequencing)
	if onlyAnnotated {
		expr = fmt.Sprintf("(%s) AND %s", expr, filterProtein)
	}
	return fmt.Sprintf("(%s) AND %s", expr, filterAssembly)
}
