// Package schedule turns period labels and amounts into a validated release
// schedule. It performs no I/O and never consults the process timezone.
package schedule

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

// Builder converts period labels using one fixed reference timezone.
type Builder struct {
	loc *time.Location
}

// NewBuilder returns a Builder for loc. A nil loc selects UTC.
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{loc: loc}
}

// Location reports the reference timezone.
func (b *Builder) Location() *time.Location { return b.loc }

// Build validates periods and amounts and pairs them positionally.
// Checks run in this order: shape, labels, ordering, amounts.
func (b *Builder) Build(periods []types.PeriodLabel, amounts []types.ReleaseAmount) (types.ReleaseSchedule, error) {
	if len(periods) == 0 || len(amounts) == 0 {
		return types.ReleaseSchedule{}, types.NewFieldError(types.ErrShapeMismatch, "", "",
			fmt.Sprintf("periods and amounts must be non-empty (got %d periods, %d amounts)", len(periods), len(amounts)))
	}
	if len(periods) != len(amounts) {
		return types.ReleaseSchedule{}, types.NewFieldError(types.ErrShapeMismatch, "", "",
			fmt.Sprintf("%d periods but %d amounts", len(periods), len(amounts)))
	}

	times := make([]types.EpochSeconds, len(periods))
	for i, p := range periods {
		t, err := ParsePeriod(p, b.loc)
		if err != nil {
			return types.ReleaseSchedule{}, types.NewFieldError(types.ErrInvalidPeriodLabel, types.IndexField("periods", i), string(p), err.Error())
		}
		if t.Before(time.Unix(0, 0)) {
			return types.ReleaseSchedule{}, types.NewFieldError(types.ErrInvalidPeriodLabel, types.IndexField("periods", i), string(p), "before the unix epoch")
		}
		times[i] = ToEpochSeconds(t)
	}

	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return types.ReleaseSchedule{}, types.NewFieldError(types.ErrNonMonotonicSchedule, types.IndexField("periods", i), string(periods[i]),
				fmt.Sprintf("%d is not after %s (%d)", times[i], periods[i-1], times[i-1]))
		}
	}

	for i, a := range amounts {
		if a < 0 {
			return types.ReleaseSchedule{}, types.NewFieldError(types.ErrInvalidAmount, types.IndexField("amounts", i), strconv.FormatInt(int64(a), 10), "must be non-negative")
		}
	}

	entries := make([]types.ReleaseScheduleEntry, len(times))
	for i := range times {
		entries[i] = types.ReleaseScheduleEntry{Time: times[i], Amount: amounts[i]}
	}
	return types.NewReleaseSchedule(entries), nil
}

// BuildWithTotal is Build plus a check that the amounts sum to total, a base-10
// integer string. An empty total skips the check.
func (b *Builder) BuildWithTotal(periods []types.PeriodLabel, amounts []types.ReleaseAmount, total string) (types.ReleaseSchedule, error) {
	s, err := b.Build(periods, amounts)
	if err != nil {
		return types.ReleaseSchedule{}, err
	}
	total = strings.TrimSpace(total)
	if total == "" {
		return s, nil
	}
	want, ok := new(big.Int).SetString(total, 10)
	if !ok || want.Sign() < 0 {
		return types.ReleaseSchedule{}, types.NewFieldError(types.ErrTotalMismatch, "total_supply", total, "not a non-negative integer")
	}
	if got := s.Total(); got != want.String() {
		return types.ReleaseSchedule{}, types.NewFieldError(types.ErrTotalMismatch, "total_supply", total, "amounts sum to "+got)
	}
	return s, nil
}

// ParsePeriod parses "YYYY/MM" (or "YYYY-MM") and returns the first instant of
// that month in loc.
func ParsePeriod(label types.PeriodLabel, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(string(label))
	sep := strings.IndexAny(s, "/-")
	if sep < 0 {
		return time.Time{}, fmt.Errorf("expected YYYY/MM")
	}
	ys, ms := s[:sep], s[sep+1:]
	if len(ys) != 4 || !digits(ys) {
		return time.Time{}, fmt.Errorf("year %q must be four digits", ys)
	}
	if len(ms) < 1 || len(ms) > 2 || !digits(ms) {
		return time.Time{}, fmt.Errorf("month %q must be one or two digits", ms)
	}
	year, _ := strconv.Atoi(ys)
	month, _ := strconv.Atoi(ms)
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range 1..12", month)
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc), nil
}

// ToEpochSeconds converts t from millisecond resolution to whole seconds,
// rounding half up: a remainder of 500ms or more rounds to the next second.
func ToEpochSeconds(t time.Time) types.EpochSeconds {
	ms := t.UnixMilli()
	sec, rem := ms/1000, ms%1000
	if rem < 0 {
		sec--
		rem += 1000
	}
	if rem >= 500 {
		sec++
	}
	return types.EpochSeconds(sec)
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
