// Package migrations embeds the LifeCard schema.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

// Files holds the numbered SQL migrations (001_init.sql, 002_...).
//
//go:embed *.sql
var Files embed.FS

// Names lists the embedded migrations in the order they must run.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(Files, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
