// Package asset is the content-addressed store for canonical media. Every
// source file is rewritten into its canonical device form (mono 44.1 kHz MP3,
// 320x240 letterboxed PNG), hashed, and stored once under its digest.
// Admission is memoized in a small SQLite index keyed by source bytes plus
// processing options, so unchanged inputs never re-run the transcoder.
package asset
