// Package ffmpeg invokes the external transcoding engine.
//
// It covers the two invocations the asset pipeline needs: peak-volume
// measurement (volumedetect) and the deterministic audio canonicalization
// transcode. All transcode invocations pin bitexact flags and strip container
// metadata so identical input bytes and options always produce identical
// output bytes.
package ffmpeg
