package alertconfig

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
)

//go:embed default_tiers.toml
var defaultTiersTOML []byte

type seedFile struct {
	Tiers []seedTier `toml:"tiers"`
}

type seedTier struct {
	Name             string   `toml:"name"`
	DaysBeforeExpiry int      `toml:"days_before_expiry"`
	Severity         string   `toml:"severity"`
	NotifyRoles      []string `toml:"notify_roles"`
	Color            string   `toml:"color"`
	SortOrder        *int     `toml:"sort_order"`
	Active           *bool    `toml:"active"`
}

// LoadSeedFile parses a tier seed file. An empty path selects the built-in defaults.
func LoadSeedFile(path string) ([]TierInput, error) {
	data := defaultTiersTOML
	if p := strings.TrimSpace(path); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read tier seed file: %w", err)
		}
		data = raw
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]TierInput, error) {
	var file seedFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tier seed file: %w", err)
	}
	inputs := make([]TierInput, 0, len(file.Tiers))
	for _, t := range file.Tiers {
		inputs = append(inputs, TierInput{
			TierName:         t.Name,
			DaysBeforeExpiry: t.DaysBeforeExpiry,
			Severity:         t.Severity,
			NotifyRoles:      t.NotifyRoles,
			ColorCode:        t.Color,
			SortOrder:        t.SortOrder,
			Active:           t.Active,
		})
	}
	return inputs, nil
}

// SeedDefaults creates the tiers of the seed file when the registry is empty.
// It returns how many tiers were created.
func (s *service) SeedDefaults(ctx context.Context, path string) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count tiers")
	}
	if count > 0 {
		return 0, nil
	}

	inputs, err := LoadSeedFile(path)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "load tier seed")
	}

	created := 0
	for _, input := range inputs {
		if _, err := s.Create(ctx, input); err != nil {
			return created, fmt.Errorf("seed tier %q: %w", input.TierName, err)
		}
		created++
	}
	s.logg.Info(s.logg.WithField(ctx, "tiers_created", created), "default alert tiers seeded")
	return created, nil
}
