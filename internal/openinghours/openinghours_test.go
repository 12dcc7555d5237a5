package openinghours

import (
	"testing"

	"github.com/wegman-software/poimatch-go/internal/poi"
)

func week(open, close string, days ...int) [7]poi.Day {
	var w [7]poi.Day
	for _, d := range days {
		w[d] = poi.Day{Open: open, Close: close}
	}
	return w
}

func TestBuild(t *testing.T) {
	off := false
	on := true

	weekdays := week("08:00", "16:00", 0, 1, 2, 3, 4)
	withSaturday := weekdays
	withSaturday[5] = poi.Day{Open: "8:00", Close: "12:00"}

	weekend := week("10:00", "14:00", 5, 6)

	summer := weekdays
	for i := 0; i < 5; i++ {
		summer[i].SummerOpen = "07:00"
		summer[i].SummerClose = "18:00"
	}

	tests := []struct {
		name string
		oh   poi.OpeningHours
		want string
	}{
		{"empty", poi.OpeningHours{}, ""},
		{"nonstop", poi.OpeningHours{Nonstop: true, PublicHolidayOpen: &off}, "24/7"},
		{"weekdays", poi.OpeningHours{Days: weekdays}, "Mo-Fr 08:00-16:00"},
		{"saturday padded", poi.OpeningHours{Days: withSaturday}, "Mo-Fr 08:00-16:00; Sa 08:00-12:00"},
		{"two day span", poi.OpeningHours{Days: weekend}, "Sa,Su 10:00-14:00"},
		{"lunch break", poi.OpeningHours{Days: weekdays, LunchBreakStart: "12:00", LunchBreakStop: "12:30"},
			"Mo-Fr 08:00-12:00,12:30-16:00"},
		{"lunch outside hours ignored", poi.OpeningHours{Days: weekend, LunchBreakStart: "15:00", LunchBreakStop: "16:00"},
			"Sa,Su 10:00-14:00"},
		{"holidays off", poi.OpeningHours{Days: weekdays, PublicHolidayOpen: &off}, "Mo-Fr 08:00-16:00; PH off"},
		{"holidays open", poi.OpeningHours{Days: weekdays, PublicHolidayOpen: &on}, "Mo-Fr 08:00-16:00"},
		{"summer", poi.OpeningHours{Days: summer}, "Mo-Fr 08:00-16:00; Jun-Aug Mo-Fr 07:00-18:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(tt.oh); got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"8:00":     "08:00",
		" 09:30 ":  "09:30",
		"10:15:00": "10:15",
		"":         "",
	}
	for in, want := range tests {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
