package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/ooAKLoo/AppScope/internal/model"
)

const (
	// RetentionWindowDays bounds how far back cohort dates are considered.
	RetentionWindowDays = 60
	// MaxCohorts caps the number of cohorts returned, newest first.
	MaxCohorts = 30
)

type cohortAcc struct {
	date    time.Time
	members map[string]struct{}
	// returned[i] holds users with an open on date + model.RetentionOffsets[i].
	returned [len(model.RetentionOffsets)]map[string]struct{}
}

// BuildRetention folds raw cohort membership rows into per-cohort retention
// figures. Rows may repeat; users are counted once per cohort and horizon.
// Rows whose active date is not on a tracked horizon are ignored for the
// horizon counts but still make the user a cohort member.
func BuildRetention(members []model.CohortMember) []model.RetentionCohort {
	byDate := make(map[time.Time]*cohortAcc)
	for _, m := range members {
		date := model.DateOf(m.CohortDate)
		acc, ok := byDate[date]
		if !ok {
			acc = &cohortAcc{date: date, members: make(map[string]struct{})}
			for i := range acc.returned {
				acc.returned[i] = make(map[string]struct{})
			}
			byDate[date] = acc
		}
		acc.members[m.UserID] = struct{}{}
		if m.ActiveDate.IsZero() {
			continue
		}
		active := model.DateOf(m.ActiveDate)
		for i, offset := range model.RetentionOffsets {
			if active.Equal(model.AddDays(date, offset)) {
				acc.returned[i][m.UserID] = struct{}{}
			}
		}
	}

	accs := make([]*cohortAcc, 0, len(byDate))
	for _, acc := range byDate {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].date.After(accs[j].date) })
	if len(accs) > MaxCohorts {
		accs = accs[:MaxCohorts]
	}

	cohorts := make([]model.RetentionCohort, 0, len(accs))
	for _, acc := range accs {
		day0 := int64(len(acc.members))
		cohorts = append(cohorts, model.RetentionCohort{
			CohortDate: model.FormatDate(acc.date),
			Day0:       day0,
			Day1:       percent(int64(len(acc.returned[0])), day0),
			Day7:       percent(int64(len(acc.returned[1])), day0),
			Day30:      percent(int64(len(acc.returned[2])), day0),
		})
	}
	return cohorts
}

// percent returns n/total as a percentage rounded to one decimal place, half
// away from zero. It returns nil when total is zero.
func percent(n, total int64) *float64 {
	if total == 0 {
		return nil
	}
	v := math.Round(float64(n)*1000/float64(total)) / 10
	return &v
}
