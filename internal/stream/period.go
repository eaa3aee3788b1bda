package stream

// DefaultPeriodMinutes is used when a period is not in the table.
const DefaultPeriodMinutes = 15

var periodMinutes = map[string]int{
	"1m":  1,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"2h":  120,
	"4h":  240,
	"6h":  360,
	"12h": 720,
	"1d":  1440,
	"3d":  4320,
	"1w":  10080,
}

var minutesPeriod = func() map[int]string {
	m := make(map[int]string, len(periodMinutes))
	for period, minutes := range periodMinutes {
		m[minutes] = period
	}
	return m
}()

// PeriodToMinutes converts "1h" to 60. Unknown periods map to DefaultPeriodMinutes.
func PeriodToMinutes(period string) int {
	if minutes, ok := periodMinutes[period]; ok {
		return minutes
	}
	return DefaultPeriodMinutes
}

// MinutesToPeriod converts 60 to "1h". Unknown values map to the default period.
func MinutesToPeriod(minutes int) string {
	if period, ok := minutesPeriod[minutes]; ok {
		return period
	}
	return minutesPeriod[DefaultPeriodMinutes]
}

// ValidPeriod reports whether period is in the table.
func ValidPeriod(period string) bool {
	_, ok := periodMinutes[period]
	return ok
}
