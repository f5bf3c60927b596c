// Package imaging produces the two raster forms the compiler needs: the
// canonical letterboxed PNG stored by the asset store, and the device-native
// 4-bit grayscale RLE bitmap derived from it at device-compile time.
package imaging
