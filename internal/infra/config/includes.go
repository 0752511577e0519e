package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxIncludeDepth = 10

// applyIncludes overlays every file listed in cfg.Includes onto cfg, in
// order. Paths are relative to dir. seen holds the absolute paths merged
// so far; meeting one again is an error.
func applyIncludes(cfg *Config, dir string, seen map[string]bool, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("config includes: max depth %d exceeded", maxIncludeDepth)
	}
	patterns := cfg.Includes
	cfg.Includes = nil

	for _, pattern := range patterns {
		paths, err := expandInclude(pattern, dir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return fmt.Errorf("config includes: %q: %w", p, err)
			}
			if seen[abs] {
				return fmt.Errorf("config includes: circular include detected for %q", abs)
			}
			seen[abs] = true
			if err := mergeInclude(cfg, abs, seen, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandInclude resolves pattern against dir. Relative patterns may not
// leave dir; a glob matching nothing yields no paths.
func expandInclude(pattern, dir string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
		if rel, err := filepath.Rel(dir, pattern); err == nil && strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("config includes: path %q escapes config directory", pattern)
		}
	}
	pattern = filepath.Clean(pattern)

	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("config includes: glob %q: %w", pattern, err)
	}
	return matches, nil
}

// mergeInclude unmarshals path onto cfg, then follows its own includes.
func mergeInclude(cfg *Config, path string, seen map[string]bool, depth int) error {
	if err := validatePermissions(path); err != nil {
		return fmt.Errorf("config includes: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config includes: read %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config includes: parse %q: %w", path, err)
	}
	if len(cfg.Includes) == 0 {
		return nil
	}
	return applyIncludes(cfg, filepath.Dir(path), seen, depth)
}
