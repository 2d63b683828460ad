package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/skmethodistpj/laporan/core/calendar"
)

// Dedupe keeps one record per id. The last occurrence wins but keeps the position of the first,
// which is how a map keyed by id fills up.
func Dedupe[R Record](recs []R) []R {
	index := make(map[string]int, len(recs))
	out := make([]R, 0, len(recs))
	for _, r := range recs {
		if i, ok := index[r.RecordID()]; ok {
			out[i] = r
			continue
		}
		index[r.RecordID()] = len(out)
		out = append(out, r)
	}
	return out
}

// SortAssembly orders by week, latest first. Rows without a parsable week go last.
func SortAssembly(recs []Assembly) {
	sort.SliceStable(recs, func(i, j int) bool {
		wi, oki := recs[i].Week()
		wj, okj := recs[j].Week()
		if oki != okj {
			return oki
		}
		return wi > wj
	})
}

// SortCaring orders by date, latest first. Rows without a parsable date go last.
func SortCaring(recs []Caring) {
	sort.SliceStable(recs, func(i, j int) bool {
		ti, erri := calendar.ParseDate(recs[i].Tarikh)
		tj, errj := calendar.ParseDate(recs[j].Tarikh)
		if (erri == nil) != (errj == nil) {
			return erri == nil
		}
		return ti.After(tj)
	})
}

// Sort applies the display order of the record kind.
func Sort[R Record](recs []R) {
	switch l := any(recs).(type) {
	case []Assembly:
		SortAssembly(l)
	case []Caring:
		SortCaring(l)
	}
}

// Merge replaces the record with rec's id or prepends rec, then re-sorts. list is not modified.
func Merge[R Record](list []R, rec R) []R {
	out := make([]R, 0, len(list)+1)
	replaced := false
	for _, r := range list {
		if r.RecordID() == rec.RecordID() {
			out = append(out, rec)
			replaced = true
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append([]R{rec}, out...)
	}
	Sort(out)
	return out
}

// Remove drops the record with id. list is not modified.
func Remove[R Record](list []R, id string) []R {
	out := make([]R, 0, len(list))
	for _, r := range list {
		if r.RecordID() != id {
			out = append(out, r)
		}
	}
	return out
}

func Find[R Record](list []R, id string) (R, bool) {
	for _, r := range list {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero R
	return zero, false
}

// FilterAssembly drops rows without a week, such as blank sheet rows.
func FilterAssembly(recs []Assembly) []Assembly {
	out := make([]Assembly, 0, len(recs))
	for _, r := range recs {
		if strings.TrimSpace(r.Minggu) != "" {
			out = append(out, r)
		}
	}
	return out
}

// Search returns the records matching q. An empty q matches everything.
func Search[R Record](recs []R, q string) []R {
	out := make([]R, 0, len(recs))
	for _, r := range recs {
		if r.Matches(q) {
			out = append(out, r)
		}
	}
	return out
}

// Select returns the records whose id is in ids, in list order. Unknown ids are ignored.
func Select[R Record](recs []R, ids []string) []R {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = struct{}{}
	}
	out := make([]R, 0, len(ids))
	for _, r := range recs {
		if _, ok := want[r.RecordID()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Weeks returns the parsed week number of every report, skipping unparsable ones.
func Weeks(recs []Assembly) []int {
	weeks := make([]int, 0, len(recs))
	for _, r := range recs {
		if w, ok := r.Week(); ok {
			weeks = append(weeks, w)
		}
	}
	return weeks
}

// FormatDate renders a stored date as dd-mm-yyyy. Timestamps are read in Malaysia time, since the sheet
// returns date cells as the UTC instant of local midnight.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "T") {
		if t, err := calendar.ParseDate(s); err == nil {
			return t.Format("02-01-2006")
		}
		s = s[:strings.IndexByte(s, 'T')]
	} else if f := strings.Fields(strings.SplitN(s, ":", 2)[0]); len(f) > 0 {
		s = f[0]
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 4 {
		return s
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}

// FormatTime renders "13:05" as "1:05 P.M.". Timestamps use their UTC clock, the way the sheet
// hands back time-only cells. Anything else is returned as is.
func FormatTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var hours, minutes int
	switch {
	case strings.Contains(s, "T"):
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return s
		}
		t = t.UTC()
		hours, minutes = t.Hour(), t.Minute()
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 3)
		var okH, okM bool
		hours, okH = leadingInt(parts[0])
		minutes, okM = leadingInt(parts[1])
		if !okH || !okM {
			return s
		}
	default:
		return s
	}

	ampm := "A.M."
	if hours >= 12 {
		ampm = "P.M."
	}
	display := hours % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minutes, ampm)
}
