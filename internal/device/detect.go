package device

import (
	"archive/zip"
	"path"
)

// IsDeviceArchive reports whether the ZIP at archivePath already holds a
// compiled device pack (some directory carrying the ni/li/ri/si index
// files), so conversion can skip work it has already done. Unreadable
// archives report false.
func IsDeviceArchive(archivePath string) bool {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return false
	}
	defer zr.Close()

	indexes := map[string]map[string]bool{}
	for _, file := range zr.File {
		dir, name := path.Split(file.Name)
		switch name {
		case "ni", "li", "ri", "si":
			if indexes[dir] == nil {
				indexes[dir] = map[string]bool{}
			}
			indexes[dir][name] = true
		}
	}
	for _, found := range indexes {
		if found["ni"] && found["li"] && found["ri"] && found["si"] {
			return true
		}
	}
	return false
}
