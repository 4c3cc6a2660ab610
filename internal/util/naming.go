package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unitNameRegexp = regexp.MustCompile("[^a-z0-9_-]+")

// maxUnitNameLength keeps names valid both as Nomad job IDs and GitHub runner names.
const maxUnitNameLength = 64

// RunnerName builds the name a just-in-time runner registers with.
func RunnerName(prefix, jobID string) string {
	return truncate(fmt.Sprintf("%s-%s", sanitize(prefix), sanitize(jobID)))
}

// UnitPrefix is the leading part every UnitName for prefix starts with.
func UnitPrefix(prefix string) string {
	return sanitize(prefix) + "-"
}

// UnitName builds a unique platform identifier for one launch of a job. Two
// launches of the same job never share a name.
func UnitName(prefix, jobID string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	base := UnitPrefix(prefix) + sanitize(jobID)
	if len(base) > maxUnitNameLength-len(suffix)-1 {
		base = base[:maxUnitNameLength-len(suffix)-1]
	}
	return base + "-" + suffix
}

func sanitize(s string) string {
	return unitNameRegexp.ReplaceAllString(strings.ToLower(s), "")
}

func truncate(s string) string {
	if len(s) > maxUnitNameLength {
		return s[:maxUnitNameLength]
	}
	return s
}
