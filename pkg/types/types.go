package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PeriodLabel is a calendar year-month such as "2021/06". It denotes the first
// instant of that month in the builder's reference timezone.
type PeriodLabel string

// EpochSeconds is a non-negative count of seconds since the Unix epoch (UTC).
type EpochSeconds int64

// Time returns the instant in UTC.
func (e EpochSeconds) Time() time.Time { return time.Unix(int64(e), 0).UTC() }

// ReleaseAmount is a quantity of token units. It is signed so that a negative
// value in configuration is rejected instead of wrapping around.
type ReleaseAmount int64

// ReleaseScheduleEntry means "at Time, Amount tokens become releasable".
type ReleaseScheduleEntry struct {
	Time   EpochSeconds  `json:"time"`
	Amount ReleaseAmount `json:"amount"`
}

// ReleaseSchedule is an ordered, validated sequence of entries. Values are only
// produced by schedule.Builder; accessors return copies so a schedule handed to
// the assembler cannot be changed underneath it.
type ReleaseSchedule struct {
	entries []ReleaseScheduleEntry
}

// NewReleaseSchedule wraps entries without validating them. Use schedule.Builder
// for anything that will be deployed.
func NewReleaseSchedule(entries []ReleaseScheduleEntry) ReleaseSchedule {
	cp := make([]ReleaseScheduleEntry, len(entries))
	copy(cp, entries)
	return ReleaseSchedule{entries: cp}
}

func (s ReleaseSchedule) Len() int { return len(s.entries) }

func (s ReleaseSchedule) Entries() []ReleaseScheduleEntry {
	cp := make([]ReleaseScheduleEntry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Times projects the unlock times in entry order.
func (s ReleaseSchedule) Times() []EpochSeconds {
	out := make([]EpochSeconds, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Time
	}
	return out
}

// Amounts projects the release amounts in entry order.
func (s ReleaseSchedule) Amounts() []ReleaseAmount {
	out := make([]ReleaseAmount, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Amount
	}
	return out
}

// Total is the sum of all amounts as a base-10 integer string.
func (s ReleaseSchedule) Total() string {
	sum := big.NewInt(0)
	for _, e := range s.entries {
		sum.Add(sum, big.NewInt(int64(e.Amount)))
	}
	return sum.String()
}

// LockedAt sums the entries that have not unlocked yet at now. An entry unlocks
// at its own instant.
func (s ReleaseSchedule) LockedAt(now time.Time) string {
	locked := big.NewInt(0)
	for _, e := range s.entries {
		if now.Before(e.Time.Time()) {
			locked.Add(locked, big.NewInt(int64(e.Amount)))
		}
	}
	return locked.String()
}

// ReleasedAt is Total minus LockedAt.
func (s ReleaseSchedule) ReleasedAt(now time.Time) string {
	total, _ := new(big.Int).SetString(s.Total(), 10)
	locked, _ := new(big.Int).SetString(s.LockedAt(now), 10)
	return total.Sub(total, locked).String()
}

// End returns the last unlock instant, or the zero time for an empty schedule.
func (s ReleaseSchedule) End() time.Time {
	if len(s.entries) == 0 {
		return time.Time{}
	}
	return s.entries[len(s.entries)-1].Time.Time()
}

// DeploymentParameters is the constructor tuple in its declared order:
// (coin address, unlock times, amounts).
type DeploymentParameters struct {
	CoinAddress common.Address
	Times       []EpochSeconds
	Amounts     []ReleaseAmount
}

// Args returns the positional constructor arguments with the Go types the ABI
// packer expects for (address, uint256[], uint256[]).
func (p DeploymentParameters) Args() []interface{} {
	times := make([]*big.Int, len(p.Times))
	for i, t := range p.Times {
		times[i] = big.NewInt(int64(t))
	}
	amounts := make([]*big.Int, len(p.Amounts))
	for i, a := range p.Amounts {
		amounts[i] = big.NewInt(int64(a))
	}
	return []interface{}{p.CoinAddress, times, amounts}
}

// Schedule pairs Times and Amounts back into a ReleaseSchedule. Entries past
// the shorter slice are dropped.
func (p DeploymentParameters) Schedule() ReleaseSchedule {
	n := len(p.Times)
	if len(p.Amounts) < n {
		n = len(p.Amounts)
	}
	entries := make([]ReleaseScheduleEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = ReleaseScheduleEntry{Time: p.Times[i], Amount: p.Amounts[i]}
	}
	return NewReleaseSchedule(entries)
}
