// Package migrations embeds and applies the Postgres and ClickHouse schemas.
package migrations

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// ErrInvalidMigration is returned when an embedded file cannot be applied
// safely.
var ErrInvalidMigration = errors.New("invalid migration")

// Migration is one embedded SQL file. Version is the file name without the
// .sql suffix; files apply in lexical order of Version.
type Migration struct {
	Version string
	SQL     string
}

// Statements splits the migration for drivers without multi-statement
// support.
func (m Migration) Statements() []string {
	return splitStatements(m.SQL)
}

// Load reads the .sql files of dir in fsys. Blank files are skipped.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations %s: %w", dir, err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		sql := string(data)
		if strings.TrimSpace(sql) == "" {
			continue
		}
		if err := validateNoSemicolonInStrings(sql); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMigration, entry.Name(), err)
		}
		out = append(out, Migration{
			Version: strings.TrimSuffix(entry.Name(), ".sql"),
			SQL:     sql,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// splitStatements splits on semicolons after dropping blank and -- comment
// lines. Semicolons inside string literals or /* */ comments are not
// supported; Load rejects the former.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(filtered, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch ch := sql[i]; {
		case ch == '\'' && inString && i+1 < len(sql) && sql[i+1] == '\'':
			i++ // escaped quote
		case ch == '\'':
			inString = !inString
		case ch == ';' && inString:
			return errors.New("semicolon inside string literal")
		}
	}
	return nil
}
