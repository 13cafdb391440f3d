package build

import (
	"context"

	"github.com/osvaldoandrade/extrepo/internal/app/paths"
	"github.com/osvaldoandrade/extrepo/internal/domain"
)

type ManifestReport struct {
	Entries []domain.ManifestEntry
	Valid   int
	Invalid int
}

// ValidateManifests loads every manifest the way Run does, including the
// repo name ownership check, without touching the network or public dir.
func (s *Service) ValidateManifests(ctx context.Context, extensionsDir string) (ManifestReport, error) {
	dir, err := paths.NormalizeDir(extensionsDir, ErrExtensionsDirRequired)
	if err != nil {
		return ManifestReport{}, err
	}
	entries, err := s.catalog.Load(ctx, dir)
	if err != nil {
		return ManifestReport{}, err
	}
	domain.SortEntries(entries)
	claimRepoNames(entries)

	report := ManifestReport{Entries: entries}
	for _, entry := range entries {
		if entry.Err != nil {
			report.Invalid++
			s.logger.Warn("invalid manifest", "manifest", entry.FileName, "err", entry.Err)
			continue
		}
		report.Valid++
	}
	return report, nil
}
