package types

import "strings"

// QueryLevel represents the level of C-FIND query
type QueryLevel string

const (
	QueryLevelPatient QueryLevel = "PATIENT"
	QueryLevelStudy   QueryLevel = "STUDY"
	QueryLevelSeries  QueryLevel = "SERIES"
	QueryLevelImage   QueryLevel = "IMAGE"
)

// ParseQueryLevel accepts the four query levels, case-insensitively.
// INSTANCE is accepted as a synonym of IMAGE.
func ParseQueryLevel(s string) (QueryLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PATIENT":
		return QueryLevelPatient, true
	case "STUDY":
		return QueryLevelStudy, true
	case "SERIES":
		return QueryLevelSeries, true
	case "IMAGE", "INSTANCE":
		return QueryLevelImage, true
	}
	return "", false
}

// ResourceLevel is the level of a resource in the patient/study/series/instance hierarchy.
type ResourceLevel int

const (
	LevelPatient ResourceLevel = iota
	LevelStudy
	LevelSeries
	LevelInstance
)

var resourceLevelNames = [...]string{"Patient", "Study", "Series", "Instance"}

func (l ResourceLevel) String() string {
	if l < LevelPatient || l > LevelInstance {
		return "Unknown"
	}
	return resourceLevelNames[l]
}

// ParseResourceLevel parses a resource level name, case-insensitively.
func ParseResourceLevel(s string) (ResourceLevel, bool) {
	for i, name := range resourceLevelNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return ResourceLevel(i), true
		}
	}
	if q, ok := ParseQueryLevel(s); ok {
		return q.ResourceLevel(), true
	}
	return 0, false
}

// QueryLevel returns the C-FIND level naming l.
func (l ResourceLevel) QueryLevel() QueryLevel {
	switch l {
	case LevelPatient:
		return QueryLevelPatient
	case LevelStudy:
		return QueryLevelStudy
	case LevelSeries:
		return QueryLevelSeries
	}
	return QueryLevelImage
}

// Parent returns the level above l. The patient level has no parent.
func (l ResourceLevel) Parent() (ResourceLevel, bool) {
	if l <= LevelPatient {
		return LevelPatient, false
	}
	return l - 1, true
}

// ResourceLevel returns the resource level named by q.
func (q QueryLevel) ResourceLevel() ResourceLevel {
	switch q {
	case QueryLevelPatient:
		return LevelPatient
	case QueryLevelStudy:
		return LevelStudy
	case QueryLevelSeries:
		return LevelSeries
	}
	return LevelInstance
}
