package device

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata is the human-readable pack descriptor stored as the md file:
// one "key: value" line per field.
type Metadata struct {
	Title        string
	Description  string
	UUID         string
	Ref          string
	PackType     string
	CipherScheme string
	Version      int
	StageCount   int
	ImageCount   int
	SoundCount   int
}

// packType marks bundles produced by this tool.
const packType = "storyforge"

// encodeMD renders the descriptor. Values are single-line; embedded newlines
// are flattened so the line format stays parseable.
func encodeMD(md Metadata) []byte {
	var b strings.Builder
	write := func(key, value string) {
		value = strings.ReplaceAll(value, "\n", " ")
		fmt.Fprintf(&b, "%s: %s\n", key, value)
	}
	write("title", md.Title)
	write("description", md.Description)
	write("uuid", md.UUID)
	write("ref", md.Ref)
	write("packType", md.PackType)
	write("cipherScheme", md.CipherScheme)
	write("version", strconv.Itoa(md.Version))
	write("stageNodes", strconv.Itoa(md.StageCount))
	write("images", strconv.Itoa(md.ImageCount))
	write("sounds", strconv.Itoa(md.SoundCount))
	return []byte(b.String())
}

// ParseMetadata reads an md payload back. Unknown keys are ignored and
// malformed lines skipped; listings must survive descriptors written by
// other tools.
func ParseMetadata(data []byte) Metadata {
	var md Metadata
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "title":
			md.Title = value
		case "description":
			md.Description = value
		case "uuid":
			md.UUID = value
		case "ref":
			md.Ref = value
		case "packType":
			md.PackType = value
		case "cipherScheme":
			md.CipherScheme = value
		case "version":
			md.Version = atoiOrZero(value)
		case "stageNodes":
			md.StageCount = atoiOrZero(value)
		case "images":
			md.ImageCount = atoiOrZero(value)
		case "sounds":
			md.SoundCount = atoiOrZero(value)
		}
	}
	return md
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
