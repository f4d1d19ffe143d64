/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package hooks

import (
	"time"

	v1 "openebs.io/dailytask/apis/dailytask/v1"
)

// TimeFormat is the layout of DayInfo.Time i.e. HH:MM:SS
const TimeFormat = "15:04:05"

// NewDayInfo returns the DayInfo of the given moment with the
// given rating
func NewDayInfo(now time.Time, rating v1.Rating) v1.DayInfo {
	return v1.DayInfo{
		Time:   now.Format(TimeFormat),
		Day:    now.Weekday().String(),
		Rating: rating,
	}
}

// DefaultStatus stamps the DailyTask with the given moment & rates
// the day as good
func DefaultStatus(task *v1.DailyTask, now time.Time) v1.DailyTaskStatus {
	return v1.DailyTaskStatus{
		Today: NewDayInfo(now, v1.RatingGood),
	}
}
