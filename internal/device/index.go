package device

import (
	"encoding/binary"
	"fmt"
)

// ni layout constants.
const (
	niHeaderSize   = 512
	niNodeSize     = 44
	niFormatTag    = 1
	resourceDir000 = "000"
)

// nodeRecord is one 44-byte stage entry in the ni file. Missing assets are
// encoded as -1; transition triples are (action index, option count,
// selected option), or all -1 when absent.
type nodeRecord struct {
	Image    int32
	Audio    int32
	OK       [3]int32
	Home     [3]int32
	Controls [5]int16
}

// noTransition fills an absent ok/home triple.
var noTransition = [3]int32{-1, -1, -1}

func appendI32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

func appendI16(dst []byte, v int16) []byte {
	return binary.LittleEndian.AppendUint16(dst, uint16(v))
}

// encodeNI renders the node index: a 512-byte header followed by one
// 44-byte record per stage in dense index order.
func encodeNI(storyVersion int, records []nodeRecord, imageCount, soundCount int) []byte {
	out := make([]byte, 0, niHeaderSize+len(records)*niNodeSize)

	header := make([]byte, 0, niHeaderSize)
	header = binary.LittleEndian.AppendUint16(header, niFormatTag)
	header = binary.LittleEndian.AppendUint16(header, uint16(storyVersion))
	header = appendI32(header, niHeaderSize)
	header = appendI32(header, niNodeSize)
	header = appendI32(header, int32(len(records)))
	header = appendI32(header, int32(imageCount))
	header = appendI32(header, int32(soundCount))
	header = append(header, 1) // factory pack marker
	header = append(header, make([]byte, niHeaderSize-len(header))...)
	out = append(out, header...)

	for _, rec := range records {
		out = append(out, encodeNode(rec)...)
	}
	return out
}

func encodeNode(rec nodeRecord) []byte {
	out := make([]byte, 0, niNodeSize)
	out = appendI32(out, rec.Image)
	out = appendI32(out, rec.Audio)
	for _, v := range rec.OK {
		out = appendI32(out, v)
	}
	for _, v := range rec.Home {
		out = appendI32(out, v)
	}
	for _, v := range rec.Controls {
		out = appendI16(out, v)
	}
	out = appendI16(out, 0) // pad to 44 bytes
	return out
}

// encodeLI renders the list index: every action's stage indices
// concatenated, in action index order.
func encodeLI(actionLists [][]int32) []byte {
	var out []byte
	for _, list := range actionLists {
		for _, stageIndex := range list {
			out = appendI32(out, stageIndex)
		}
	}
	return out
}

// resourceEntry is the 12-byte ASCII form the resource indexes use: a
// zero-padded decimal sequence number inside bucket 000, "000\00000042".
func resourceEntry(index int) []byte {
	return []byte(fmt.Sprintf("%s\\%08d", resourceDir000, index))
}

// resourcePath is the bundle-relative path of a resource payload, matching
// resourceEntry with forward slashes under the given top directory
// ("rf" for images, "sf" for sounds).
func resourcePath(top string, index int) string {
	return fmt.Sprintf("%s/%s/%08d", top, resourceDir000, index)
}

// encodeResourceIndex renders ri or si: one 12-byte entry per resource.
func encodeResourceIndex(count int) []byte {
	out := make([]byte, 0, count*12)
	for i := 0; i < count; i++ {
		out = append(out, resourceEntry(i)...)
	}
	return out
}

// encodeBT renders the bt marker file.
func encodeBT() []byte {
	return binary.LittleEndian.AppendUint32(nil, 1)
}
