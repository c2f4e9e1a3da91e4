package console

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// SanitizeFileName splits a file name into a storage-safe base and its
// extension. The base is lowercased and every run of characters outside
// [a-z0-9] becomes a single "_". Names without a dot have no extension.
func SanitizeFileName(name string) (base, ext string) {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i+1:]
	} else {
		base = strings.TrimPrefix(name, ".")
	}

	var b strings.Builder
	inRun := false
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}
	base = b.String()
	if base == "" {
		base = "archivo"
	}
	return base, ext
}

// StoragePath builds {category}/{parentID}/{sanitized}_{unix_ms}.{ext}.
func StoragePath(category, parentID, fileName string, now time.Time) string {
	base, ext := SanitizeFileName(fileName)
	name := fmt.Sprintf("%s_%d", base, now.UnixMilli())
	if ext != "" {
		name += "." + ext
	}
	return category + "/" + parentID + "/" + name
}
