package climate

import (
	"fmt"
	"strings"
)

// Section identifies one of the named dataset sections embedded in a source
// file. Exactly one section is active at a time; switching sections re-runs
// the full load-and-clean pipeline.
type Section string

const (
	SectionAIRSv6 Section = "AIRS v6"
	SectionAIRSv7 Section = "AIRS v7"
	SectionGHCN   Section = "GHCNv4/ERSSTv5"
)

// DefaultSection is the section loaded when none is requested.
const DefaultSection = SectionGHCN

// KnownSections returns all recognized section labels in a stable order
func KnownSections() []Section {
	return []Section{SectionAIRSv6, SectionAIRSv7, SectionGHCN}
}

// ParseSection validates a section label
func ParseSection(s string) (Section, error) {
	label := strings.TrimSpace(s)
	for _, known := range KnownSections() {
		if label == string(known) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown dataset section %q (expected one of %v)", s, KnownSections())
}

// DetectSection reports which section a header line introduces, if any.
// A header line is any line containing a known label as a substring.
func DetectSection(line string) (Section, bool) {
	for _, known := range KnownSections() {
		if strings.Contains(line, string(known)) {
			return known, true
		}
	}
	return "", false
}

// String returns the section label
func (s Section) String() string { return string(s) }

// IsValid checks whether the section is one of the known labels
func (s Section) IsValid() bool {
	for _, known := range KnownSections() {
		if s == known {
			return true
		}
	}
	return false
}
