package fleetmap

import "time"

// Window bounds a trajectory query, both ends inclusive.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DayWindow returns the UTC calendar day containing now, from midnight to 23:59:59.
func DayWindow(now time.Time) Window {
	y, m, d := now.UTC().Date()
	return Window{
		From: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		To:   time.Date(y, m, d, 23, 59, 59, 0, time.UTC),
	}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}
