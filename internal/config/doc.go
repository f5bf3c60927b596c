// Package config loads and validates the storyforge TOML configuration.
//
// Configuration sections by subsystem:
//   - Paths: workspace, asset cache, and default device root directories
//   - Transcode: ffmpeg invocation and audio canonicalization parameters
//   - Image: canvas geometry for the canonical raster
//   - Device: binary pack cipher scheme selection
//   - Logging: log format, level, and output
package config
