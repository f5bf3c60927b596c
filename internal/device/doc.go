// Package device compiles a navigation graph into the device-native pack:
// fixed-width little-endian index files (ni, li, ri, si, bt, md) plus
// encrypted resource payloads, laid out the way the player firmware reads
// them from storage.
package device
