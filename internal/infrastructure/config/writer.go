package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var sectionRegex = regexp.MustCompile(`^(\s*)\[([^\]]+)\]\s*$`)

// WriteConfigOrdered writes the configuration to disk with consistent ordering.
// Durations are written as Go duration strings ("168h0m0s") so the file
// reads back through Viper unchanged.
func WriteConfigOrdered(cfg *Config, path string) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	data, err := EncodeTOML(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EncodeTOML renders cfg as TOML with sections sorted alphabetically.
func EncodeTOML(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)

	if err := enc.Encode(toDocument(cfg)); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return []byte(sortTOMLSections(buf.String())), nil
}

// toDocument mirrors Config with durations as strings.
func toDocument(cfg *Config) map[string]any {
	return map[string]any{
		"logging": map[string]any{
			"level":           cfg.Logging.Level,
			"format":          cfg.Logging.Format,
			"max_age":         cfg.Logging.MaxAge,
			"log_dir":         cfg.Logging.LogDir,
			"enable_file_log": cfg.Logging.EnableFileLog,
		},
		"database": map[string]any{
			"path": cfg.Database.Path,
		},
		"icons": map[string]any{
			"storage_dir":            cfg.Icons.StorageDir,
			"capacity":               cfg.Icons.Capacity,
			"refresh_interval":       cfg.Icons.RefreshInterval.String(),
			"min_favicon_size":       cfg.Icons.MinFaviconSize,
			"touch_icon_size":        cfg.Icons.TouchIconSize,
			"max_concurrent_fetches": cfg.Icons.MaxConcurrentFetches,
			"fetch_timeout":          cfg.Icons.FetchTimeout.String(),
			"max_icon_bytes":         cfg.Icons.MaxIconBytes,
			"user_agent":             cfg.Icons.UserAgent,
		},
		"internals": map[string]any{
			"enabled": cfg.Internals.Enabled,
			"listen":  cfg.Internals.Listen,
		},
		"metrics": map[string]any{
			"enabled": cfg.Metrics.Enabled,
		},
	}
}

// sortTOMLSections sorts TOML content so sections are in alphabetical order.
func sortTOMLSections(content string) string {
	type section struct {
		header string
		lines  []string
	}

	var sections []section
	var currentSection *section
	var preamble []string

	for _, line := range strings.Split(content, "\n") {
		if match := sectionRegex.FindStringSubmatch(line); match != nil {
			if currentSection != nil {
				sections = append(sections, *currentSection)
			}
			currentSection = &section{header: match[2], lines: []string{line}}
		} else if currentSection != nil {
			currentSection.lines = append(currentSection.lines, line)
		} else {
			preamble = append(preamble, line)
		}
	}
	if currentSection != nil {
		sections = append(sections, *currentSection)
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].header < sections[j].header
	})

	var result strings.Builder
	for _, line := range preamble {
		result.WriteString(line)
		result.WriteString("\n")
	}
	for i, sec := range sections {
		if i > 0 || len(preamble) > 0 {
			content := result.String()
			if !strings.HasSuffix(content, "\n\n") && content != "" {
				result.WriteString("\n")
			}
		}
		for _, line := range sec.lines {
			result.WriteString(line)
			result.WriteString("\n")
		}
	}

	output := strings.TrimRight(result.String(), "\n")
	if output != "" {
		output += "\n"
	}
	return output
}
