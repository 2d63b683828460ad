package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids[R Record](recs []R) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.RecordID()
	}
	return out
}

func TestDedupe(t *testing.T) {
	recs := []Assembly{
		{ID: "a", Tema: "first"},
		{ID: "b"},
		{ID: "a", Tema: "second"},
		{ID: "c"},
		{ID: "a", Tema: "third"},
	}

	got := Dedupe(recs)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, "third", got[0].Tema, "last occurrence wins")
	assert.Len(t, recs, 5, "input untouched")
}

func TestSortAssembly(t *testing.T) {
	recs := []Assembly{
		{ID: "w2", Minggu: "2"},
		{ID: "none", Minggu: "?"},
		{ID: "w10", Minggu: "10"},
		{ID: "w2b", Minggu: "2"},
		{ID: "w9", Minggu: " 9"},
	}
	SortAssembly(recs)
	assert.Equal(t, []string{"w10", "w9", "w2", "w2b", "none"}, ids(recs))
}

func TestSortCaring(t *testing.T) {
	recs := []Caring{
		{ID: "jan", Tarikh: "2026-01-20"},
		{ID: "bad", Tarikh: ""},
		{ID: "mar", Tarikh: "2026-03-02"},
		{ID: "feb", Tarikh: "2026-02-10T16:00:00.000Z"},
	}
	SortCaring(recs)
	assert.Equal(t, []string{"mar", "feb", "jan", "bad"}, ids(recs))
}

func TestMerge(t *testing.T) {
	list := []Assembly{{ID: "a", Minggu: "3"}, {ID: "b", Minggu: "1"}}

	t.Run("new record is inserted in order", func(t *testing.T) {
		got := Merge(list, Assembly{ID: "c", Minggu: "2"})
		assert.Equal(t, []string{"a", "c", "b"}, ids(got))
		assert.Len(t, list, 2)
	})

	t.Run("edit replaces in place without duplicating", func(t *testing.T) {
		got := Merge(list, Assembly{ID: "b", Minggu: "1", Tema: "baru"})
		assert.Equal(t, []string{"a", "b"}, ids(got))
		assert.Equal(t, "baru", got[1].Tema)
		assert.Empty(t, list[1].Tema)
	})

	t.Run("edit that changes the week re-sorts", func(t *testing.T) {
		got := Merge(list, Assembly{ID: "b", Minggu: "4"})
		assert.Equal(t, []string{"b", "a"}, ids(got))
	})

	t.Run("caring prepends newest", func(t *testing.T) {
		got := Merge([]Caring{{ID: "x", Tarikh: "2026-01-20"}}, Caring{ID: "y", Tarikh: "2026-01-21"})
		assert.Equal(t, []string{"y", "x"}, ids(got))
	})
}

func TestRemoveFind(t *testing.T) {
	list := []Caring{{ID: "x"}, {ID: "y"}}

	assert.Equal(t, []string{"y"}, ids(Remove(list, "x")))
	assert.Len(t, Remove(list, "z"), 2)

	got, ok := Find(list, "y")
	assert.True(t, ok)
	assert.Equal(t, "y", got.ID)
	_, ok = Find(list, "z")
	assert.False(t, ok)
}

func TestFilterAssembly(t *testing.T) {
	got := FilterAssembly([]Assembly{{ID: "a", Minggu: "1"}, {ID: "blank", Minggu: " "}, {ID: "b", Minggu: "x"}})
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestSearch(t *testing.T) {
	assembly := []Assembly{
		{ID: "a", Tema: "Peraturan Sekolah", Minggu: "2", DisediakanOleh: "TAI SEE NEE"},
		{ID: "b", Tema: "Hari Kebangsaan", Minggu: "31", DisediakanOleh: "WONG AI WEE", Huraian: "sekolah"},
	}
	caring := []Caring{
		{ID: "x", Sasaran: "Murid Tahun 1", Aktiviti: "Sambut murid", DisediakanOleh: "ROZANI BINTI MURI", Tarikh: "2026-01-20"},
		{ID: "y", Sasaran: "Ibu bapa", Objektif: "murid", DisediakanOleh: "SAMARU B DAUD", Tarikh: "2026-02-03"},
	}

	tests := []struct {
		name       string
		q          string
		wantAssem  []string
		wantCaring []string
	}{
		{name: "empty matches all", q: "", wantAssem: []string{"a", "b"}, wantCaring: []string{"x", "y"}},
		{name: "case insensitive theme", q: "sekolah", wantAssem: []string{"a"}, wantCaring: []string{}},
		{name: "week", q: "31", wantAssem: []string{"b"}, wantCaring: []string{}},
		{name: "preparer", q: "wong", wantAssem: []string{"b"}, wantCaring: []string{}},
		{name: "caring target and activity", q: "MURID", wantAssem: []string{}, wantCaring: []string{"x"}},
		{name: "caring date", q: "2026-02", wantAssem: []string{}, wantCaring: []string{"y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantAssem, ids(Search(assembly, tt.q)))
			assert.Equal(t, tt.wantCaring, ids(Search(caring, tt.q)))
		})
	}
}

func TestSelect(t *testing.T) {
	list := []Assembly{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, []string{"a", "c"}, ids(Select(list, []string{"c", "a", "zzz"})))
	assert.Empty(t, Select(list, nil))
}

func TestWeeks(t *testing.T) {
	got := Weeks([]Assembly{{Minggu: "5"}, {Minggu: "5"}, {Minggu: "x"}, {Minggu: "6"}})
	assert.Equal(t, []int{5, 5, 6}, got)
}
