/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package calendar computes the Thursday-anchored academic calendar: an
// academic year (July 1 .. June 30) partitioned into 14 blocks. Block 0 is
// the short run-in before the first Thursday, blocks 1..12 are exactly 28
// days (Thursday through Wednesday), and block 13 absorbs the remainder
// through June 30.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

// ErrInvalidBlock reports a block number outside 0..13.
var ErrInvalidBlock = errors.New("invalid block number")

const (
	FirstBlock = 0
	LastBlock  = 13
	// StandardBlockDays is the length of blocks 1..12.
	StandardBlockDays = 28
	// HalfBlockDays splits a block into its two halves.
	HalfBlockDays = 14
)

// Span is the resolved date range of one block. An empty block 0 (July 1
// falling on a Thursday) has Days == 0 and End before Start.
type Span struct {
	Number       int
	AcademicYear int
	Start        time.Time
	End          time.Time
	Days         int
}

// Calendar memoises block computations. The zero value is not usable; use New.
type Calendar struct {
	memo *cache.Cache
}

func New() *Calendar {
	// Calendar facts never change, so entries never expire.
	return &Calendar{memo: cache.New(cache.NoExpiration, 0)}
}

// date builds a UTC midnight time for y-m-d.
func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// midnight truncates t to its UTC date.
func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return date(y, m, d)
}

// FirstThursday returns the first Thursday on or after July 1 of year.
func FirstThursday(year int) time.Time {
	d := date(year, time.July, 1)
	offset := (int(time.Thursday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

// BlockDates resolves block n of the given academic year. Out-of-range block
// numbers fail with ErrInvalidBlock.
func (c *Calendar) BlockDates(n, academicYear int) (Span, error) {
	if n < FirstBlock || n > LastBlock {
		return Span{}, rotaerrors.Wrap(rotaerrors.KindInvalid, ErrInvalidBlock, "block %d of AY %d", n, academicYear)
	}
	key := fmt.Sprintf("%d/%d", academicYear, n)
	if cached, ok := c.memo.Get(key); ok {
		return cached.(Span), nil
	}

	firstThursday := FirstThursday(academicYear)
	var span Span
	switch {
	case n == 0:
		start := date(academicYear, time.July, 1)
		span = newSpan(0, academicYear, start, firstThursday.AddDate(0, 0, -1))
	case n <= 12:
		start := firstThursday.AddDate(0, 0, (n-1)*StandardBlockDays)
		span = newSpan(n, academicYear, start, start.AddDate(0, 0, StandardBlockDays-1))
	default:
		start := firstThursday.AddDate(0, 0, 12*StandardBlockDays)
		span = newSpan(13, academicYear, start, date(academicYear+1, time.June, 30))
	}

	c.memo.SetDefault(key, span)
	return span, nil
}

func newSpan(n, ay int, start, end time.Time) Span {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 0 {
		days = 0
	}
	return Span{Number: n, AcademicYear: ay, Start: start, End: end, Days: days}
}

// AcademicYearOf returns the academic year the date belongs to: July onward
// belongs to the year itself, January through June to the prior one.
func AcademicYearOf(d time.Time) int {
	d = midnight(d)
	if d.Month() >= time.July {
		return d.Year()
	}
	return d.Year() - 1
}

// BlockNumberForDate maps a date to its (block number, academic year). Dates
// before the first Thursday but on or after July 1 fall in block 0; dates in
// the spring tail resolve inside the prior academic year, typically block 13.
func (c *Calendar) BlockNumberForDate(d time.Time) (int, int) {
	d = midnight(d)
	ay := AcademicYearOf(d)
	firstThursday := FirstThursday(ay)
	if d.Before(firstThursday) {
		return 0, ay
	}
	n := 1 + int(d.Sub(firstThursday).Hours()/24)/StandardBlockDays
	if n > LastBlock {
		n = LastBlock
	}
	return n, ay
}

// BlockHalf returns 1 when the date falls in the first 14 days of its block
// and 2 otherwise.
func (c *Calendar) BlockHalf(d time.Time) int {
	d = midnight(d)
	n, ay := c.BlockNumberForDate(d)
	span, err := c.BlockDates(n, ay)
	if err != nil {
		// BlockNumberForDate never returns an out-of-range block.
		return 1
	}
	if int(d.Sub(span.Start).Hours()/24) < HalfBlockDays {
		return 1
	}
	return 2
}

// ValidateAlignment checks the internal consistency of one academic year's
// blocks: contiguous coverage of [July 1, June 30], 365 or 366 total days,
// Thursday starts and Wednesday ends on blocks 1..12, and block 13 ending
// June 30.
func (c *Calendar) ValidateAlignment(academicYear int) error {
	total := 0
	cursor := date(academicYear, time.July, 1)
	for n := FirstBlock; n <= LastBlock; n++ {
		span, err := c.BlockDates(n, academicYear)
		if err != nil {
			return err
		}
		if span.Days == 0 {
			continue
		}
		if !span.Start.Equal(cursor) {
			return rotaerrors.Internal("block %d of AY %d starts %s, want %s", n, academicYear, span.Start.Format("2006-01-02"), cursor.Format("2006-01-02"))
		}
		if n >= 1 && n <= 12 {
			if span.Start.Weekday() != time.Thursday {
				return rotaerrors.Internal("block %d of AY %d starts on %s, want Thursday", n, academicYear, span.Start.Weekday())
			}
			if span.End.Weekday() != time.Wednesday {
				return rotaerrors.Internal("block %d of AY %d ends on %s, want Wednesday", n, academicYear, span.End.Weekday())
			}
			if span.Days != StandardBlockDays {
				return rotaerrors.Internal("block %d of AY %d spans %d days, want %d", n, academicYear, span.Days, StandardBlockDays)
			}
		}
		total += span.Days
		cursor = span.End.AddDate(0, 0, 1)
	}
	last, _ := c.BlockDates(LastBlock, academicYear)
	if wantEnd := date(academicYear+1, time.June, 30); !last.End.Equal(wantEnd) {
		return rotaerrors.Internal("block 13 of AY %d ends %s, want %s", academicYear, last.End.Format("2006-01-02"), wantEnd.Format("2006-01-02"))
	}
	if total != 365 && total != 366 {
		return rotaerrors.Internal("AY %d blocks cover %d days, want 365 or 366", academicYear, total)
	}
	return nil
}
