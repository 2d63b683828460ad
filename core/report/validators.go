package report

import (
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/calendar"
)

var (
	// StrictRoster restricts preparers to the Teachers roster.
	StrictRoster = false

	// TotalWeeks bounds the accepted week numbers.
	TotalWeeks = calendar.DefaultTotalWeeks

	weekTag  = "minggu"
	weekText = "{0} must be a week number between 1 and 43"

	dayTag  = "hari"
	dayText = "{0} must be a Malay weekday name"

	preparerTag  = "preparer"
	preparerText = "{0} is not on the staff roster"

	otherPlaceTag  = "other_place"
	otherPlaceText = "please specify the location"

	maxImagesTag  = "maximages"
	maxImagesText = "{0} accepts at most 2 images"
)

// RegisterValidators registers the report tags on validate. Call it once, after core.InitValidators.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekTag, weekValidation)
	core.RegisterCustomTranslation(validate, translator, weekTag, weekText)

	_ = validate.RegisterValidation(dayTag, dayValidation)
	core.RegisterCustomTranslation(validate, translator, dayTag, dayText)

	_ = validate.RegisterValidation(preparerTag, preparerValidation)
	core.RegisterCustomTranslation(validate, translator, preparerTag, preparerText)

	validate.RegisterStructValidation(caringStructValidation, Caring{})
	core.RegisterCustomTranslation(validate, translator, otherPlaceTag, otherPlaceText)

	_ = validate.RegisterValidation(maxImagesTag, maxImagesValidation)
	core.RegisterCustomTranslation(validate, translator, maxImagesTag, maxImagesText)
}

// Validate normalizes rec and validates it. The returned record is the normalized one.
func Validate(validate *validator.Validate, rec Record) (Record, error) {
	switch r := rec.(type) {
	case Assembly:
		r.Normalize()
		return r, validate.Struct(r)
	case *Assembly:
		r.Normalize()
		return *r, validate.Struct(r)
	case Caring:
		r.Normalize()
		return r, validate.Struct(r)
	case *Caring:
		r.Normalize()
		return *r, validate.Struct(r)
	}
	return nil, ErrUnknownKind
}

// Custom Validators

func weekValidation(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	w, ok := ParseWeek(s)
	// no trailing garbage on submission, even though stored rows are read leniently
	return ok && strings.TrimLeft(s, "+0123456789") == "" && w >= 1 && w <= TotalWeeks
}

func dayValidation(fl validator.FieldLevel) bool {
	return calendar.IsWeekday(fl.Field().String())
}

func maxImagesValidation(fl validator.FieldLevel) bool {
	return fl.Field().Len() <= MaxImages
}

func preparerValidation(fl validator.FieldLevel) bool {
	if !StrictRoster {
		return true
	}
	return IsRosterTeacher(fl.Field().String())
}

// caringStructValidation requires tempatLain when the "other" place is picked.
func caringStructValidation(sl validator.StructLevel) {
	c, ok := sl.Current().Interface().(Caring)
	if !ok {
		return
	}
	if c.Tempat == OtherPlace && strings.TrimSpace(c.TempatLain) == "" {
		sl.ReportError(c.TempatLain, "tempatLain", "TempatLain", otherPlaceTag, "")
	}
}

// IsRosterTeacher reports whether name (any case) is on the staff roster.
func IsRosterTeacher(name string) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	i := sort.SearchStrings(Teachers, name)
	return i < len(Teachers) && Teachers[i] == name
}
