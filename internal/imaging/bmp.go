package imaging

import (
	"encoding/binary"
	"fmt"
	"image"
)

// BMP layout constants for the device form.
const (
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
	bmpPaletteEntries = 16
	bmpCompressionRLE4 = 2
	bmpPixelsPerMeter  = 2835 // 72 DPI
)

// DeviceBMP renders img as the device-native bitmap: 4-bit grayscale with a
// 16-entry ramp palette, rows run-length encoded and stored bottom-up.
// img is expected to be the canonical canvas raster.
func DeviceBMP(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("device bmp: empty raster %dx%d", width, height)
	}
	if width%2 != 0 {
		return nil, fmt.Errorf("device bmp: width %d must be even", width)
	}

	indexed := quantizeGray16(img)

	var pixelData []byte
	// Bottom-up row order: the first encoded row is the bottom of the image.
	for y := height - 1; y >= 0; y-- {
		row := indexed[y*width : (y+1)*width]
		pixelData = appendRLE4Row(pixelData, row)
	}
	// End-of-bitmap marker terminates the pixel data.
	pixelData = append(pixelData, 0x00, 0x01)

	paletteSize := bmpPaletteEntries * 4
	headerSize := bmpFileHeaderSize + bmpInfoHeaderSize + paletteSize
	fileSize := headerSize + len(pixelData)

	out := make([]byte, 0, fileSize)
	out = append(out, 'B', 'M')
	out = appendU32(out, uint32(fileSize))
	out = appendU32(out, 0) // reserved
	out = appendU32(out, uint32(headerSize))

	out = appendU32(out, bmpInfoHeaderSize)
	out = appendU32(out, uint32(width))
	out = appendU32(out, uint32(height)) // positive: bottom-up rows
	out = appendU16(out, 1)              // planes
	out = appendU16(out, 4)              // bits per pixel
	out = appendU32(out, bmpCompressionRLE4)
	out = appendU32(out, uint32(len(pixelData)))
	out = appendU32(out, bmpPixelsPerMeter)
	out = appendU32(out, bmpPixelsPerMeter)
	out = appendU32(out, bmpPaletteEntries)
	out = appendU32(out, bmpPaletteEntries)

	// Grayscale ramp palette: B, G, R, reserved.
	for i := 0; i < bmpPaletteEntries; i++ {
		gray := byte(i * 17)
		out = append(out, gray, gray, gray, 0x00)
	}

	out = append(out, pixelData...)
	return out, nil
}

// quantizeGray16 maps every pixel to a 4-bit palette index by luma.
func quantizeGray16(img image.Image) []byte {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	indexed := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Rec. 601 luma on 16-bit channel values, reduced to 8 bits.
			luma := (299*uint32(r>>8) + 587*uint32(g>>8) + 114*uint32(b>>8)) / 1000
			indexed[y*width+x] = byte((luma*15 + 127) / 255)
		}
	}
	return indexed
}

// appendRLE4Row encodes one row of palette indices as BMP RLE4 runs followed
// by an end-of-line marker. Runs of equal indices are emitted as
// [count, index|index] pairs, capped at 254 pixels per run.
func appendRLE4Row(dst []byte, row []byte) []byte {
	const maxRun = 254
	i := 0
	for i < len(row) {
		value := row[i]
		run := 1
		for i+run < len(row) && row[i+run] == value && run < maxRun {
			run++
		}
		packed := value<<4 | value
		dst = append(dst, byte(run), packed)
		i += run
	}
	return append(dst, 0x00, 0x00)
}

func appendU16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

func appendU32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}
