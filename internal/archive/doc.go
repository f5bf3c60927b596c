// Package archive reads and writes the portable pack format: a ZIP holding
// the graph document (story.json), a thumbnail, and every canonical asset
// under assets/. Output is deterministic so identical packs are
// byte-identical archives.
package archive
