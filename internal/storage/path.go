package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const exemplarRoot = "exemplars"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildExemplarPath names one flushed batch of exemplars for a data set. The
// date partition uses the UTC calendar day of createdAt.
func BuildExemplarPath(dataSetID int64, createdAt time.Time, partID string) (string, error) {
	if dataSetID <= 0 {
		return "", fmt.Errorf("data set id must be > 0")
	}
	if err := validatePathComponent(partID, "part id"); err != nil {
		return "", err
	}
	ts := createdAt.UTC()
	return path.Join(
		ExemplarPrefix(dataSetID),
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("part-%s.parquet", partID),
	), nil
}

// ExemplarPrefix is the key prefix under which a data set's exemplars live.
func ExemplarPrefix(dataSetID int64) string {
	return path.Join(exemplarRoot, fmt.Sprintf("dataset=%d", dataSetID)) + "/"
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
