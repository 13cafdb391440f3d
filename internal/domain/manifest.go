package domain

import (
	"path/filepath"
	"sort"
	"strings"
)

const ThemeSuffix = "-theme"

type Manifest struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	ContentType  string         `json:"content_type"`
	Upstream     string         `json:"github"`
	Main         string         `json:"main"`
	Area         string         `json:"area,omitempty"`
	Description  string         `json:"description,omitempty"`
	MarketingURL string         `json:"marketing_url,omitempty"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty"`
	Flags        []string       `json:"flags,omitempty"`
	DockIcon     map[string]any `json:"dock_icon,omitempty"`
	StatusBar    any            `json:"statusBar,omitzero"`
	Layerable    bool           `json:"layerable,omitzero"`
}

// ManifestEntry is one manifest file as loaded by the catalog. Err is set when
// the file could not be parsed or validated; the entry is still listed so the
// build can report it as skipped.
type ManifestEntry struct {
	FileName string
	Theme    bool
	Manifest Manifest
	Err      error
}

func (e ManifestEntry) Label() string {
	if e.Manifest.Name != "" {
		return e.Manifest.Name
	}
	return e.FileName
}

func IsThemeFile(fileName string) bool {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return strings.HasSuffix(stem, ThemeSuffix)
}

// SortEntries orders extensions before themes, each group by file name.
func SortEntries(entries []ManifestEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Theme != entries[j].Theme {
			return !entries[i].Theme
		}
		return entries[i].FileName < entries[j].FileName
	})
}
