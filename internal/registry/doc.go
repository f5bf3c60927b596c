// Package registry manages the pack registry on a device root: the .pi
// identifier list, the root .md descriptor, and the per-pack content
// directories. Every mutation is serialized through a file lock so two
// processes cannot interleave writes to the same root.
package registry
