package course

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// courseRecord is one entry of the results API /courses listing
type courseRecord struct {
	ID     string `json:"id"`
	Course string `json:"course"`
}

type courseListing struct {
	Courses []courseRecord `json:"courses"`
}

// LoadTable reads a course file and merges it over the built-in table.
// A missing, unreadable, malformed or empty file yields the built-in table.
func LoadTable(path string, logger *logrus.Logger) Table {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithFields(logrus.Fields{"component": "course_loader", "path": path})

	table := FallbackTable()
	if path == "" {
		log.Warn("No course file configured, using built-in course table")
		return table
	}

	loaded, err := readTable(path)
	if err != nil {
		log.WithError(err).Warn("Failed to load course file, using built-in course table")
		return table
	}
	if len(loaded) == 0 {
		log.Warn("Course file is empty, using built-in course table")
		return table
	}

	for name, id := range loaded {
		table[name] = id
	}
	log.WithFields(logrus.Fields{
		"loaded": len(loaded),
		"total":  len(table),
	}).Info("Loaded course table")
	return table
}

func readTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read course file: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes either a {"name": "id"} object or a {"courses": [...]} listing
func ParseTable(data []byte) (Table, error) {
	var listing courseListing
	if err := json.Unmarshal(data, &listing); err == nil && len(listing.Courses) > 0 {
		table := make(Table, len(listing.Courses))
		for _, c := range listing.Courses {
			name := strings.ToLower(strings.TrimSpace(c.Course))
			if name == "" || c.ID == "" {
				continue
			}
			table[name] = c.ID
		}
		return table, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse course file: %w", err)
	}

	table := make(Table, len(raw))
	for name, value := range raw {
		var id string
		if err := json.Unmarshal(value, &id); err != nil {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || id == "" {
			continue
		}
		table[name] = id
	}
	return table, nil
}
