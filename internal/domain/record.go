package domain

import "strings"

const (
	RepoContentType   = "SN|Repo"
	DefaultValidUntil = "2030-05-16T18:35:33.000Z"
	DefaultForgeHost  = "github.com"
)

// ExtensionRecord is the published description of one extension. Every field
// carries an omit option: empty values never reach the serialized document.
type ExtensionRecord struct {
	Identifier   string         `json:"identifier,omitempty"`
	Name         string         `json:"name,omitempty"`
	ContentType  string         `json:"content_type,omitempty"`
	Area         string         `json:"area,omitempty"`
	Version      string         `json:"version,omitempty"`
	Description  string         `json:"description,omitempty"`
	MarketingURL string         `json:"marketing_url,omitempty"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty"`
	ValidUntil   string         `json:"valid_until,omitempty"`
	URL          string         `json:"url,omitempty"`
	DownloadURL  string         `json:"download_url,omitempty"`
	LatestURL    string         `json:"latest_url,omitempty"`
	Flags        []string       `json:"flags,omitempty"`
	DockIcon     map[string]any `json:"dock_icon,omitempty"`
	Layerable    bool           `json:"layerable,omitzero"`
	StatusBar    any            `json:"statusBar,omitzero"`
}

type RepositoryIndex struct {
	ContentType string            `json:"content_type"`
	ValidUntil  string            `json:"valid_until"`
	Packages    []ExtensionRecord `json:"packages"`
}

type URLs struct {
	Entry    string
	Latest   string
	Download string
}

type RecordOptions struct {
	BaseURL    string
	ForgeHost  string
	ValidUntil string
}

func TrimBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

func ComputeURLs(opts RecordOptions, upstream, version, main string) URLs {
	base := TrimBaseURL(opts.BaseURL)
	host := strings.TrimSpace(opts.ForgeHost)
	if host == "" {
		host = DefaultForgeHost
	}
	repo := RepoName(upstream)
	return URLs{
		Entry:    strings.Join([]string{base, repo, version, main}, "/"),
		Latest:   strings.Join([]string{base, repo, "index.json"}, "/"),
		Download: "https://" + host + "/" + strings.Trim(upstream, "/") + "/archive/" + version + ".zip",
	}
}

// NewExtensionRecord builds the record for manifest at version. identifier
// overrides the manifest id so a legacy rewrite can be applied beforehand.
func NewExtensionRecord(manifest Manifest, identifier, version string, opts RecordOptions) ExtensionRecord {
	validUntil := opts.ValidUntil
	if validUntil == "" {
		validUntil = DefaultValidUntil
	}
	urls := ComputeURLs(opts, manifest.Upstream, version, manifest.Main)
	record := ExtensionRecord{
		Identifier:   identifier,
		Name:         manifest.Name,
		ContentType:  manifest.ContentType,
		Area:         manifest.Area,
		Version:      version,
		Description:  manifest.Description,
		MarketingURL: manifest.MarketingURL,
		ThumbnailURL: manifest.ThumbnailURL,
		ValidUntil:   validUntil,
		URL:          urls.Entry,
		DownloadURL:  urls.Download,
		LatestURL:    urls.Latest,
		Layerable:    manifest.Layerable,
	}
	if len(manifest.Flags) > 0 {
		record.Flags = append([]string(nil), manifest.Flags...)
	}
	if len(manifest.DockIcon) > 0 {
		record.DockIcon = manifest.DockIcon
	}
	if !IsEmptyValue(manifest.StatusBar) {
		record.StatusBar = manifest.StatusBar
	}
	return record
}

// IsEmptyValue reports whether a decoded manifest value counts as empty for
// the published record: null, false, zero, "", [] and {}.
func IsEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case int:
		return v == 0
	case int64:
		return v == 0
	case uint64:
		return v == 0
	case float64:
		return v == 0
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
