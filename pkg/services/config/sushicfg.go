package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

const profilesFile = ".sushicfg"

// Profile is one SUSHI provider section of the profiles file.
type Profile struct {
	Name        string
	URL         string
	RequestorID string
	CustomerID  string
	APIKey      string
	Platform    string
	Insecure    bool
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

// DefaultProfilesPath returns ~/.sushicfg.
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return profilesFile
	}
	return filepath.Join(home, profilesFile)
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load sushi profiles: %w", err)
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, name string) (*Profile, error) {
	section, err := cr.cfg.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", name)
	}

	profile := &Profile{
		Name:        section.Name(),
		URL:         strings.TrimRight(section.Key("url").String(), "/"),
		RequestorID: section.Key("requestor_id").String(),
		CustomerID:  section.Key("customer_id").String(),
		APIKey:      section.Key("api_key").String(),
		Platform:    section.Key("platform").String(),
		Insecure:    section.Key("insecure").MustBool(false),
	}
	if profile.URL == "" {
		return nil, fmt.Errorf("profile %s has no url", name)
	}
	return profile, nil
}
