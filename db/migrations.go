// Package db carries the SQL migrations for the talktime schema
package db

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migration is a single schema migration script
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns every migration in the order it should be applied
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	result := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return nil, err
		}
		result = append(result, Migration{Name: name, SQL: string(data)})
	}
	return result, nil
}
