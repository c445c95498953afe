package measurement

import (
	"time"
)

// User is a person the scale can attribute weighings to. Optional fields are
// nil when the user has not provided them.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Birthyear    *int      `json:"birthyear"`
	Gender       *string   `json:"gender"`
	Height       *int      `json:"height"`
	MinTolerance *int      `json:"min_tolerance,omitempty"`
	MaxTolerance *int      `json:"max_tolerance,omitempty"`
	Created      time.Time `json:"created"`
}

// NextUserID returns an id one larger than the largest id in use
func NextUserID(users []User) int64 {
	var max int64
	for _, u := range users {
		if u.ID > max {
			max = u.ID
		}
	}
	return max + 1
}

// IndexOfUser returns the index of the user with the given id or -1
func IndexOfUser(users []User, id int64) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func IntPointer(v int) *int {
	return &v
}

func StringPointer(v string) *string {
	return &v
}
