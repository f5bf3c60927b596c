// Package story holds the in-memory navigation graph every output format is
// compiled from: stage nodes (screens), action nodes (ordered choice lists),
// and the validation rules the compilers rely on.
package story
