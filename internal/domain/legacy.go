package domain

import (
	"path/filepath"
	"strings"
)

// LegacyIDRule rewrites the identifier of a fixed set of manifests whose ids
// collide with an upstream-hosted package of the same name.
type LegacyIDRule struct {
	files         map[string]struct{}
	disambiguator string
}

func NewLegacyIDRule(files []string, disambiguator string) LegacyIDRule {
	rule := LegacyIDRule{
		files:         make(map[string]struct{}, len(files)),
		disambiguator: strings.TrimSpace(disambiguator),
	}
	for _, file := range files {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		rule.files[manifestStem(file)] = struct{}{}
	}
	return rule
}

func (r LegacyIDRule) Applies(fileName string) bool {
	if len(r.files) == 0 || r.disambiguator == "" {
		return false
	}
	_, ok := r.files[manifestStem(fileName)]
	return ok
}

// Apply replaces the last dot-delimited segment of identifier when fileName
// is listed. Identifiers without a dot get the disambiguator appended.
func (r LegacyIDRule) Apply(fileName, identifier string) string {
	if !r.Applies(fileName) {
		return identifier
	}
	idx := strings.LastIndex(identifier, ".")
	if idx < 0 {
		return identifier + "." + r.disambiguator
	}
	return identifier[:idx+1] + r.disambiguator
}

func manifestStem(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DisambiguatorForHost derives a dot-free id segment from a host name.
func DisambiguatorForHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	return strings.ReplaceAll(host, ".", "-")
}
