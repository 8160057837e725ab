package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

type directoryFile struct {
	PrimaryAdmins   []string          `yaml:"primary_admins"`
	SecondaryAdmins []string          `yaml:"secondary_admins"`
	SuperAdmin      string            `yaml:"super_admin"`
	Names           map[string]string `yaml:"names"`
}

// MergeFile loads a YAML directory file and merges it into d. Tier members from
// the file are appended after those from the environment; names from the
// environment win.
func (d *DirectoryConfig) MergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read directory file: %w", err)
	}
	return d.mergeYAML(raw)
}

func (d *DirectoryConfig) mergeYAML(raw []byte) error {
	var file directoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse directory file: %w", err)
	}

	d.PrimaryAdmins = appendUnique(d.PrimaryAdmins, file.PrimaryAdmins)
	d.SecondaryAdmins = appendUnique(d.SecondaryAdmins, file.SecondaryAdmins)
	if d.SuperAdmin == "" {
		d.SuperAdmin = file.SuperAdmin
	}
	if d.AdminNames == nil {
		d.AdminNames = make(map[string]string, len(file.Names))
	}
	for id, name := range file.Names {
		if _, exists := d.AdminNames[id]; !exists {
			d.AdminNames[id] = name
		}
	}
	return nil
}

func appendUnique(dst, src []string) []string {
	for _, id := range src {
		if id == "" || slices.Contains(dst, id) {
			continue
		}
		dst = append(dst, id)
	}
	return dst
}
