// Package seed loads ICP profiles from a YAML file.
package seed

import (
	"bytes"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/xaenox/outreach-router/internal/models"
)

type file struct {
	Profiles []profile `yaml:"profiles"`
}

type profile struct {
	ID                 string             `yaml:"id"`
	Name               string             `yaml:"name"`
	Industry           string             `yaml:"industry"`
	Size               string             `yaml:"size"`
	Description        string             `yaml:"description"`
	PainPoints         string             `yaml:"pain_points"`
	ChannelPreferences map[string]float64 `yaml:"channel_preferences"`
}

// LoadProfiles reads a seed file.
func LoadProfiles(path string) ([]models.ICPProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read seed file %s", path)
	}
	return ParseProfiles(data)
}

// ParseProfiles validates ids, channel names and weights.
func ParseProfiles(data []byte) ([]models.ICPProfile, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, eris.Wrap(err, "decode seed file")
	}

	seen := make(map[string]struct{}, len(f.Profiles))
	out := make([]models.ICPProfile, 0, len(f.Profiles))
	for i, p := range f.Profiles {
		if p.ID == "" || p.Name == "" {
			return nil, eris.Errorf("profile %d: id and name are required", i)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, eris.Errorf("profile %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}

		prefs := make(models.ChannelWeights, len(p.ChannelPreferences))
		for name, w := range p.ChannelPreferences {
			ch, ok := models.ParseChannel(name)
			if !ok {
				return nil, eris.Errorf("profile %s: unknown channel %q", p.ID, name)
			}
			if w < 0 || w > 1 {
				return nil, eris.Errorf("profile %s: weight %v for %s outside [0,1]", p.ID, w, name)
			}
			prefs[ch] = w
		}

		out = append(out, models.ICPProfile{
			ID:                 p.ID,
			Name:               p.Name,
			Industry:           p.Industry,
			Size:               p.Size,
			Description:        p.Description,
			PainPoints:         p.PainPoints,
			ChannelPreferences: prefs,
		})
	}
	return out, nil
}
