package calendar

import "time"

// Clock - источник текущего времени.
type Clock interface {
	Now() time.Time
}

// SystemClock возвращает локальное системное время.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock всегда возвращает одно и то же время.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Today возвращает текущую дату (полночь) по часам.
func Today(c Clock) time.Time {
	return Midnight(c.Now())
}
