package assignment

import (
	"fmt"
	"time"
)

const (
	daysPerMonth = 30
	daysPerYear  = 365
)

// ElapsedDays は start から end までの経過日数（切り捨て）を返します。負の値は 0 とします。
func ElapsedDays(start, end time.Time) int {
	days := int(end.Sub(start) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

// FormatDuration は経過日数を表示用の表現に変換します。
// 30 日未満は日、365 日未満は 30 日単位の月、それ以上は年と残りの月で表します。
func FormatDuration(days int) string {
	if days < 0 {
		days = 0
	}

	switch {
	case days < daysPerMonth:
		return plural(days, "day")
	case days < daysPerYear:
		return plural(days/daysPerMonth, "month")
	default:
		years := days / daysPerYear
		months := (days % daysPerYear) / daysPerMonth
		if months == 0 {
			return plural(years, "year")
		}
		return plural(years, "year") + ", " + plural(months, "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
