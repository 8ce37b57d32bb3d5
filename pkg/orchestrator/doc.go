// Package orchestrator runs the assemble -> render pipeline and walks the
// ordered renderer tiers (external service, local browser, primitive drawing)
// until one of them produces a PDF.
package orchestrator
