package services

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var weekPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// DayRange は "2006-01-02" 形式の日を loc における [その日 00:00, 翌日 00:00) に変換します。
func DayRange(day string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: day %q", ErrBadPeriod, day)
	}
	return start, start.AddDate(0, 0, 1), nil
}

// WeekRange は ISO-8601 の週 "2021-W01" を月曜始まりの [月曜 00:00, 翌週月曜 00:00) に変換します。
func WeekRange(week string, loc *time.Location) (time.Time, time.Time, error) {
	m := weekPattern.FindStringSubmatch(week)
	if m == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: week %q", ErrBadPeriod, week)
	}
	year, _ := strconv.Atoi(m[1])
	num, _ := strconv.Atoi(m[2])
	if num < 1 || num > 53 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: week %q", ErrBadPeriod, week)
	}

	// 1月4日を含む週が第1週
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	start := jan4.AddDate(0, 0, -offset+(num-1)*7)

	// 第53週が無い年を弾く
	if y, w := start.ISOWeek(); y != year || w != num {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: week %q", ErrBadPeriod, week)
	}
	return start, start.AddDate(0, 0, 7), nil
}

// MonthRange は "2006-01" 形式の月を [1日 00:00, 翌月1日 00:00) に変換します。
func MonthRange(month string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month %q", ErrBadPeriod, month)
	}
	return start, start.AddDate(0, 1, 0), nil
}
