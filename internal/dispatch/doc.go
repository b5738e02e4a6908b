// Package dispatch provides an open, type-keyed registry used to route
// values to implementations supplied by independent packages.
//
// Implementations are registered under a Kind. A value's lookup order is
// its own Lineage (or its Go type string) followed by any ancestry declared
// with Derive, so an implementation registered for an abstract category
// also serves every concrete kind that names it as an ancestor.
package dispatch
