package model

import "time"

// AppSummary is one row of the application listing.
type AppSummary struct {
	AppID         string `json:"app_id"`
	DAUToday      int64  `json:"dau_today"`
	TotalInstalls int64  `json:"total_installs"`
}

// DauPoint is the distinct open-user count for one calendar date.
type DauPoint struct {
	Date string `json:"date"`
	DAU  int64  `json:"dau"`
}

// InstallPoint is the install count for one calendar date.
type InstallPoint struct {
	Date     string `json:"date"`
	Installs int64  `json:"installs"`
}

// InstallStats pairs the all-time install total with a windowed daily series.
type InstallStats struct {
	Total int64          `json:"total"`
	Data  []InstallPoint `json:"data"`
}

// RetentionOffsets are the tracked return horizons, in days after a cohort
// date. They line up with RetentionCohort's Day1, Day7 and Day30.
var RetentionOffsets = [...]int{1, 7, 30}

// RetentionCohort is the retention of users who first opened the app on
// CohortDate. Percentages are nil when the cohort is empty.
type RetentionCohort struct {
	CohortDate string   `json:"cohort_date"`
	Day0       int64    `json:"day0"`
	Day1       *float64 `json:"day1"`
	Day7       *float64 `json:"day7"`
	Day30      *float64 `json:"day30"`
}

// CohortMember is a raw row feeding the retention computation: a user, the
// date of their first open, and one later open date on a tracked offset.
// ActiveDate is zero when the user has no open on any tracked offset.
type CohortMember struct {
	UserID     string
	CohortDate time.Time
	ActiveDate time.Time
}
