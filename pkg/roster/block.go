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

package roster

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

// TimeOfDay splits a day into its two schedulable halves.
type TimeOfDay string

const (
	AM TimeOfDay = "AM"
	PM TimeOfDay = "PM"
)

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	switch TimeOfDay(s) {
	case AM, PM:
		return TimeOfDay(s), nil
	}
	return "", rotaerrors.Invalid("unknown time of day %q", s)
}

// Block is one schedulable half-day. (Date, TimeOfDay) is unique across the
// store; BlockNumber is the academic calendar block (0..13) the date falls in.
type Block struct {
	ID          uuid.UUID
	Date        time.Time
	TimeOfDay   TimeOfDay
	BlockNumber int
	IsWeekend   bool
	IsHoliday   bool
	HolidayName string
}

// Key identifies the block's unique (date, half) slot, normalised to UTC day
// precision so two blocks constructed from different wall clocks compare equal.
func (b *Block) Key() string {
	return fmt.Sprintf("%s/%s", b.Date.UTC().Format("2006-01-02"), b.TimeOfDay)
}

func (b *Block) Validate() error {
	if b.ID == uuid.Nil {
		return rotaerrors.Invalid("block id is required")
	}
	if b.TimeOfDay != AM && b.TimeOfDay != PM {
		return rotaerrors.Invalid("block %s has unknown time of day %q", b.ID, b.TimeOfDay)
	}
	if b.BlockNumber < 0 || b.BlockNumber > 13 {
		return rotaerrors.Invalid("block %s has block number %d outside 0..13", b.ID, b.BlockNumber)
	}
	return nil
}

func (b *Block) Weekday() time.Weekday { return b.Date.Weekday() }

func (b *Block) IsWednesdayAM() bool {
	return b.Date.Weekday() == time.Wednesday && b.TimeOfDay == AM
}

func (b *Block) IsWednesdayPM() bool {
	return b.Date.Weekday() == time.Wednesday && b.TimeOfDay == PM
}

// OnDate reports whether the block falls on the given calendar date.
func (b *Block) OnDate(d time.Time) bool {
	y1, m1, d1 := b.Date.UTC().Date()
	y2, m2, d2 := d.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// SameDay reports whether two blocks fall on the same calendar date.
func (b *Block) SameDay(other *Block) bool {
	y1, m1, d1 := b.Date.Date()
	y2, m2, d2 := other.Date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
