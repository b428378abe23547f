package migration

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// fileScannerImpl implements the FileScanner interface
type fileScannerImpl struct {
	pattern *regexp.Regexp
}

// NewFileScanner creates a FileScanner matching {version}_{description}.sql
func NewFileScanner() FileScanner {
	return &fileScannerImpl{pattern: regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)}
}

// ScanMigrations reads every .sql file in dir and returns them ordered by version
func (s *fileScannerImpl) ScanMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, NewMigrationError("", dir, "read directory", err)
	}

	var migrations []Migration
	seen := make(map[int]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		if err := s.ValidateFileName(entry.Name()); err != nil {
			return nil, NewMigrationError("", entry.Name(), "validate filename", err)
		}

		m, err := s.parseMigrationFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		// "1" and "001" are the same version
		number, _ := strconv.Atoi(m.Version)
		if existing, ok := seen[number]; ok {
			return nil, NewMigrationError(m.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, m.Version, existing, entry.Name()))
		}
		seen[number] = entry.Name()

		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})

	return migrations, nil
}

// ValidateFileName checks if migration file follows naming convention
func (s *fileScannerImpl) ValidateFileName(filename string) error {
	matches := s.pattern.FindStringSubmatch(filename)
	if len(matches) != 3 {
		return fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'",
			ErrInvalidMigrationFile, filename)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return fmt.Errorf("%w: version '%s' in filename '%s' is not a valid number",
			ErrInvalidVersion, matches[1], filename)
	}
	return nil
}

func (s *fileScannerImpl) parseMigrationFile(fsys fs.FS, filePath string) (Migration, error) {
	matches := s.pattern.FindStringSubmatch(path.Base(filePath))
	version := matches[1]

	raw, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return Migration{}, NewMigrationError(version, filePath, "read file", err)
	}
	content := string(raw)

	if len(splitStatements(content)) == 0 {
		return Migration{}, NewMigrationError(version, filePath, "validate content",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}
	if err := checkBalancedParentheses(content); err != nil {
		return Migration{}, NewMigrationError(version, filePath, "validate SQL syntax", err)
	}

	description := descriptionFromComments(content)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	return Migration{
		Version:     version,
		Description: description,
		SQL:         content,
		FilePath:    filePath,
		Checksum:    fmt.Sprintf("%x", sha256.Sum256(raw)),
	}, nil
}

func checkBalancedParentheses(sql string) error {
	depth := 0
	for _, stmt := range splitStatements(sql) {
		for _, r := range stmt {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
				if depth < 0 {
					return fmt.Errorf("%w: unmatched closing parenthesis", ErrInvalidMigrationFile)
				}
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unmatched opening parenthesis", ErrInvalidMigrationFile)
	}
	return nil
}

// descriptionFromComments returns the value of a leading "-- Description:" line.
func descriptionFromComments(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
