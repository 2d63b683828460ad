// Package report holds the two report categories kept in the remote store: the weekly assembly
// (perhimpunan) report and the Guru Penyayang (caring teacher) program log.
package report

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/calendar"
)

// Kind tags a Record with its category.
type Kind string

const (
	KindAssembly Kind = "PERHIMPUNAN"
	KindCaring   Kind = "PENYAYANG"
)

// Defaults used by new drafts and Normalize.
const (
	DefaultMasa             = "07:30"
	DefaultAssemblyTempat   = "Tapak Perhimpunan"
	DefaultKumpulan         = "A"
	DefaultPentadbirBerucap = "Guru Besar"

	DefaultProgram     = "AMALAN GURU PENYAYANG"
	DefaultCaringPlace = "PINTU PAGAR UTAMA SEKOLAH"
	OtherPlace         = "LAIN-LAIN (SILA NYATAKAN)"

	MaxImages = 2
	idLen     = 9
)

var (
	Kinds = []Kind{KindAssembly, KindCaring}

	ErrUnknownKind = errors.New("unknown report kind")
	ErrNotFound    = errors.New("report not found")
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindAssembly, KindCaring:
		return k, nil
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Record is implemented by Assembly and Caring only.
type Record interface {
	Kind() Kind
	RecordID() string
	// Matches reports whether q is a case-insensitive substring of one of the searchable fields.
	Matches(q string) bool
	isRecord()
}

// Assembly is a weekly assembly report. JSON names are the remote store's column names.
type Assembly struct {
	ID               string `json:"id" validate:"required"`
	Tarikh           string `json:"tarikh" validate:"required,isodate"`
	Hari             string `json:"hari" validate:"omitempty,hari"`
	Minggu           string `json:"minggu" validate:"required,minggu"`
	Masa             string `json:"masa" validate:"omitempty,hhmm"`
	Tempat           string `json:"tempat"`
	Kumpulan         string `json:"kumpulan" validate:"omitempty,oneof=A B C"`
	Tema             string `json:"tema"`
	Huraian          string `json:"huraian"`
	UcapanGuruLepas  string `json:"ucapanGuruLepas"`
	UcapanGuruIni    string `json:"ucapanGuruIni"`
	PentadbirBerucap string `json:"pentadbirBerucap"`
	UcapanPentadbir  string `json:"ucapanPentadbir"`
	Images           Images `json:"images" validate:"maximages,dive,datauri"`
	DisediakanOleh   string `json:"disediakanOleh" validate:"required,preparer"`
}

func (Assembly) Kind() Kind         { return KindAssembly }
func (a Assembly) RecordID() string { return a.ID }
func (Assembly) isRecord()          {}
func (a Assembly) Matches(q string) bool {
	return matchAny(q, a.Tema, a.Minggu, a.DisediakanOleh)
}

// Week returns the parsed week number.
func (a Assembly) Week() (int, bool) { return ParseWeek(a.Minggu) }

// Normalize trims the fields, fills blank fields with the form defaults and derives the weekday.
func (a *Assembly) Normalize() {
	trimAll(&a.ID, &a.Tarikh, &a.Hari, &a.Minggu, &a.Masa, &a.Tempat, &a.Kumpulan, &a.Tema,
		&a.PentadbirBerucap, &a.DisediakanOleh)
	a.Kumpulan = strings.ToUpper(a.Kumpulan)
	a.Hari = strings.ToUpper(a.Hari)
	setDefault(&a.Masa, DefaultMasa)
	setDefault(&a.Tempat, DefaultAssemblyTempat)
	setDefault(&a.Kumpulan, DefaultKumpulan)
	setDefault(&a.PentadbirBerucap, DefaultPentadbirBerucap)
	setDefault(&a.Hari, calendar.WeekdayOf(a.Tarikh))
	if a.Images == nil {
		a.Images = Images{}
	}
}

// Caring is a Guru Penyayang program report.
type Caring struct {
	ID             string `json:"id" validate:"required"`
	Program        string `json:"program"`
	Tarikh         string `json:"tarikh" validate:"required,isodate"`
	Hari           string `json:"hari" validate:"omitempty,hari"`
	Tempat         string `json:"tempat"`
	TempatLain     string `json:"tempatLain"`
	Sasaran        string `json:"sasaran" validate:"required"`
	Objektif       string `json:"objektif"`
	Aktiviti       string `json:"aktiviti"`
	Images         Images `json:"images" validate:"maximages,dive,datauri"`
	DisediakanOleh string `json:"disediakanOleh" validate:"required,preparer"`
}

func (Caring) Kind() Kind         { return KindCaring }
func (c Caring) RecordID() string { return c.ID }
func (Caring) isRecord()          {}
func (c Caring) Matches(q string) bool {
	return matchAny(q, c.Sasaran, c.Aktiviti, c.DisediakanOleh, c.Tarikh)
}

// Location is the free-text place when the "other" option was picked.
func (c Caring) Location() string {
	if c.Tempat == OtherPlace && strings.TrimSpace(c.TempatLain) != "" {
		return c.TempatLain
	}
	return c.Tempat
}

func (c *Caring) Normalize() {
	trimAll(&c.ID, &c.Program, &c.Tarikh, &c.Hari, &c.Tempat, &c.TempatLain, &c.Sasaran, &c.DisediakanOleh)
	c.Hari = strings.ToUpper(c.Hari)
	setDefault(&c.Program, DefaultProgram)
	setDefault(&c.Tempat, DefaultCaringPlace)
	setDefault(&c.Hari, calendar.WeekdayOf(c.Tarikh))
	if c.Tempat != OtherPlace {
		c.TempatLain = ""
	}
	if c.Images == nil {
		c.Images = Images{}
	}
}

// NewAssemblyDraft returns the defaults of a new assembly form opened at now.
func NewAssemblyDraft(now time.Time, week int) Assembly {
	now = now.In(calendar.Location)
	return Assembly{
		ID:               NewID(),
		Tarikh:           now.Format(calendar.DateLayout),
		Hari:             calendar.Weekday(now),
		Minggu:           strconv.Itoa(week),
		Masa:             DefaultMasa,
		Tempat:           DefaultAssemblyTempat,
		Kumpulan:         DefaultKumpulan,
		PentadbirBerucap: DefaultPentadbirBerucap,
		Images:           Images{},
	}
}

// NewCaringDraft returns the defaults of a new Guru Penyayang form opened at now.
func NewCaringDraft(now time.Time) Caring {
	now = now.In(calendar.Location)
	return Caring{
		ID:      NewID(),
		Program: DefaultProgram,
		Tarikh:  now.Format(calendar.DateLayout),
		Hari:    calendar.Weekday(now),
		Tempat:  DefaultCaringPlace,
		Images:  Images{},
	}
}

// NewID returns a random 9 character lowercase base36 id, the shape of the ids already in the store.
func NewID() string {
	id := uuid.New()
	s := new(big.Int).SetBytes(id[:]).Text(36)
	if len(s) < idLen {
		s = strings.Repeat("0", idLen-len(s)) + s
	}
	return s[len(s)-idLen:]
}

// ParseWeek reads a week number the lenient way the store's clients always did:
// surrounding spaces are ignored and only the leading digits count ("5a" is 5).
func ParseWeek(s string) (int, bool) {
	return leadingInt(s)
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		n = n*10 + int(s[digits]-'0')
		if n > 1<<20 {
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func matchAny(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func trimAll(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}

func setDefault(s *string, def string) {
	if *s == "" {
		*s = def
	}
}
