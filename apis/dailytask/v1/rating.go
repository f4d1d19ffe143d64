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

package v1

import (
	"fmt"

	"openebs.io/dailytask/dynamic/enum"
)

// Rating grades the day of a DailyTask
type Rating int

const (
	// RatingGood is the zero value & hence the result of decoding
	// any unrecognised rating
	RatingGood Rating = iota

	// RatingBad flags a bad day
	RatingBad
)

var ratings = enum.NewTable(
	enum.Member[Rating]{Value: RatingGood, Name: "Good"},
	enum.Member[Rating]{Value: RatingBad, Name: "Bad"},
)

// ParseRating returns the rating matching the given wire string
// ignoring case; RatingGood otherwise
func ParseRating(s string) Rating {
	return ratings.Parse(s)
}

// String implements Stringer interface
func (r Rating) String() string {
	if !ratings.Known(r) {
		return fmt.Sprintf("Rating(%d)", int(r))
	}
	return ratings.Format(r)
}

// IsKnown returns true if this rating is a declared member
func (r Rating) IsKnown() bool {
	return ratings.Known(r)
}

// MarshalJSON implements json.Marshaler
func (r Rating) MarshalJSON() ([]byte, error) {
	return ratings.MarshalJSON(r)
}

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (r *Rating) UnmarshalJSON(data []byte) error {
	*r = ratings.UnmarshalJSON(data)
	return nil
}
