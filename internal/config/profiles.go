package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/runner-warden/internal/core"
)

// DefaultProfileName is the profile used when no job label selects another one.
const DefaultProfileName = "default"

var (
	ErrProfilesNotFound = errors.New("profiles file not found")
	ErrProfilesParsing  = errors.New("profiles parsing failed")
)

// DefaultProfile is the built-in shape used when nothing else is configured.
func DefaultProfile() core.ResourceProfile {
	return core.ResourceProfile{
		Name:     DefaultProfileName,
		CPU:      2000,
		MemoryMB: 4096,
	}
}

type profilesFile struct {
	Profiles map[string]core.ResourceProfile `yaml:"profiles"`
}

// LoadProfiles parses a YAML file of the form
//
//	profiles:
//	  gpu:
//	    cpu: 8000
//	    memory_mb: 32768
//	    accelerator: nvidia/gpu
//	    accelerator_count: 1
func LoadProfiles(path string) (map[string]core.ResourceProfile, error) {
	if path == "" {
		return nil, ErrProfilesNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfilesNotFound
		}
		return nil, fmt.Errorf("failed to read profiles file %s: %w", path, err)
	}

	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfilesParsing, err)
	}
	for name, p := range f.Profiles {
		if p.CPU <= 0 || p.MemoryMB <= 0 {
			return nil, fmt.Errorf("%w: profile %q needs positive cpu and memory_mb", ErrProfilesParsing, name)
		}
	}
	return f.Profiles, nil
}

// mergeProfiles layers file profiles over inline ones, normalizes names to lower
// case and guarantees the built-in default exists.
func mergeProfiles(inline, file map[string]core.ResourceProfile) map[string]core.ResourceProfile {
	merged := map[string]core.ResourceProfile{DefaultProfileName: DefaultProfile()}
	for _, src := range []map[string]core.ResourceProfile{inline, file} {
		for name, p := range src {
			key := strings.ToLower(name)
			p.Name = key
			merged[key] = p
		}
	}
	return merged
}

// Profile returns the named profile.
func (r RunnerConfig) Profile(name string) (core.ResourceProfile, bool) {
	p, ok := r.Profiles[strings.ToLower(name)]
	return p, ok
}

// ProfileFor picks the resource profile for a job: the first label naming a
// configured profile wins, otherwise the default profile is used.
func (r RunnerConfig) ProfileFor(labels []string) core.ResourceProfile {
	for _, l := range labels {
		if strings.EqualFold(l, DefaultProfileName) {
			continue
		}
		if p, ok := r.Profile(l); ok {
			return p
		}
	}
	if p, ok := r.Profile(r.DefaultProfile); ok {
		return p
	}
	return DefaultProfile()
}
