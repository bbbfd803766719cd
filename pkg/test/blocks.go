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

package test

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/imdario/mergo"

	"github.com/gmesched/rota/pkg/calendar"
	"github.com/gmesched/rota/pkg/roster"
)

var cal = calendar.New()

// BlockOptions customizes a Block.
type BlockOptions struct {
	ID        uuid.UUID
	Date      time.Time
	TimeOfDay roster.TimeOfDay
	IsWeekend bool
	IsHoliday bool
}

// Block creates a test block with defaults that can be overridden by
// BlockOptions. The academic block number is derived from the date.
func Block(overrides ...BlockOptions) *roster.Block {
	options := BlockOptions{}
	for _, opts := range overrides {
		if err := mergo.Merge(&options, opts, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge block options: %s", err.Error()))
		}
	}
	if options.ID == uuid.Nil {
		options.ID = uuid.New()
	}
	if options.Date.IsZero() {
		options.Date = DefaultPeriodStart
	}
	if options.TimeOfDay == "" {
		options.TimeOfDay = roster.AM
	}
	n, _ := cal.BlockNumberForDate(options.Date)
	wd := options.Date.Weekday()
	return &roster.Block{
		ID:          options.ID,
		Date:        options.Date.UTC().Truncate(24 * time.Hour),
		TimeOfDay:   options.TimeOfDay,
		BlockNumber: n,
		IsWeekend:   options.IsWeekend || wd == time.Saturday || wd == time.Sunday,
		IsHoliday:   options.IsHoliday,
	}
}

// DefaultPeriodStart is a Thursday inside the 2025-26 academic year, so
// period builders line up with block boundaries without further ceremony.
var DefaultPeriodStart = time.Date(2025, time.July, 3, 0, 0, 0, 0, time.UTC)

// Period creates the AM and PM blocks for `days` consecutive days starting at
// start, in (date, AM-before-PM) order.
func Period(start time.Time, days int) []*roster.Block {
	var blocks []*roster.Block
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		blocks = append(blocks,
			Block(BlockOptions{Date: date, TimeOfDay: roster.AM}),
			Block(BlockOptions{Date: date, TimeOfDay: roster.PM}),
		)
	}
	return blocks
}

// BlockOn finds the block for (date, half) in a period built by Period.
func BlockOn(blocks []*roster.Block, date time.Time, tod roster.TimeOfDay) *roster.Block {
	for _, b := range blocks {
		if b.OnDate(date) && b.TimeOfDay == tod {
			return b
		}
	}
	panic(fmt.Sprintf("no block on %s %s", date.Format("2006-01-02"), tod))
}
