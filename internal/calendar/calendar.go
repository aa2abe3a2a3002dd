package calendar

import (
	"fmt"
	"math"
	"time"
)

// DateLayout - формат дат (ISO), в котором хранятся даты jalons и recours.
const DateLayout = "2006-01-02"

// LateState - статус выполнения jalon относительно плановой даты.
type LateState string

const (
	NoPlannedDate     LateState = "NO_PLANNED_DATE"    // Плановая дата не задана
	Late              LateState = "LATE"               // Плановая дата прошла, jalon не выполнен
	DelayedCompletion LateState = "DELAYED_COMPLETION" // Выполнен позже плановой даты
	Done              LateState = "DONE"               // Выполнен в срок
	Pending           LateState = "PENDING"            // Ещё не выполнен, срок не наступил
)

// Remaining описывает остаток срока до дедлайна.
type Remaining struct {
	Remaining int
	Deadline  time.Time
	IsExpired bool
}

// Midnight приводит время к полуночи в его часовом поясе.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate разбирает ISO дату (YYYY-MM-DD) в локальном часовом поясе.
// Допускается полная метка времени, учитывается только её дата.
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate форматирует дату в ISO формат.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween возвращает число календарных дней от start до end, не меньше нуля.
func DaysBetween(start, end time.Time) int {
	days := dayDiff(Midnight(start), Midnight(end))
	if days < 0 {
		return 0
	}
	return days
}

// DaysUntil возвращает число полных суток от момента now до начала дня target, не меньше нуля.
// Начатые сутки не засчитываются: в 10:00 до даты через 10 дней остаётся 9 полных суток.
func DaysUntil(now, target time.Time) int {
	start := Midnight(now)
	days := dayDiff(start, Midnight(target))
	if now.After(start) {
		days--
	}
	if days < 0 {
		return 0
	}
	return days
}

// BusinessDaysBetween считает рабочие дни (пн-пт) после start вплоть до end включительно.
// Если end раньше start, результат отрицательный.
func BusinessDaysBetween(start, end time.Time) int {
	from, to := Midnight(start), Midnight(end)
	if to.Before(from) {
		return -BusinessDaysBetween(to, from)
	}

	count := 0
	for d := from; d.Before(to); {
		d = d.AddDate(0, 0, 1)
		if IsWeekday(d) {
			count++
		}
	}
	return count
}

// AddBusinessDays сдвигает дату вперёд на n рабочих дней.
func AddBusinessDays(date time.Time, n int) time.Time {
	d := Midnight(date)
	added := 0
	for added < n {
		d = d.AddDate(0, 0, 1)
		if IsWeekday(d) {
			added++
		}
	}
	return d
}

// AddCalendarDays сдвигает дату на n календарных дней.
func AddCalendarDays(date time.Time, n int) time.Time {
	return Midnight(date).AddDate(0, 0, n)
}

// BusinessDaysRemaining считает остаток срока в рабочих днях от reference на сегодня.
func BusinessDaysRemaining(reference time.Time, totalBusinessDays int, today time.Time) Remaining {
	deadline := AddBusinessDays(reference, totalBusinessDays)
	remaining := BusinessDaysBetween(today, deadline)
	if remaining < 0 {
		remaining = 0
	}
	return Remaining{
		Remaining: remaining,
		Deadline:  deadline,
		IsExpired: remaining <= 0,
	}
}

// CalendarDaysRemaining считает остаток срока в календарных днях от reference на сегодня.
func CalendarDaysRemaining(reference time.Time, totalDays int, today time.Time) Remaining {
	deadline := AddCalendarDays(reference, totalDays)
	expired := !Midnight(today).Before(deadline)
	remaining := 0
	if !expired {
		remaining = DaysBetween(today, deadline)
	}
	return Remaining{
		Remaining: remaining,
		Deadline:  deadline,
		IsExpired: expired,
	}
}

// LateStatus классифицирует jalon по плановой и фактической датам (ISO строки).
func LateStatus(planned, actual string, today time.Time) LateState {
	if planned == "" {
		return NoPlannedDate
	}
	plannedDate, err := ParseDate(planned)
	if err != nil {
		return NoPlannedDate
	}

	if actual != "" {
		actualDate, err := ParseDate(actual)
		if err == nil {
			if actualDate.After(plannedDate) {
				return DelayedCompletion
			}
			return Done
		}
	}

	if Midnight(today).After(plannedDate) {
		return Late
	}
	return Pending
}

// IsWeekday сообщает, является ли день рабочим (пн-пт).
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// dayDiff считает разницу в днях с округлением, чтобы переход на летнее время не сдвигал результат.
func dayDiff(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
