// Package assist drafts report prose with a text generation service.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/report"
)

const defaultCaringTheme = "Amalan Guru Penyayang"

var (
	ErrMissingTheme      = errors.New("Sila masukkan Tema Perhimpunan terlebih dahulu.")
	ErrMissingCredential = errors.New("Kunci API AI belum ditetapkan. Sila hubungi Admin.")
	ErrGeneration        = errors.New("Gagal menjana teks. Sila cuba lagi atau taip secara manual.")
	ErrUnknownField      = errors.New("field cannot be generated")

	// AssemblyFields and CaringFields are the narrative fields that can be drafted.
	AssemblyFields = []string{"huraian", "ucapanGuruLepas", "ucapanGuruIni", "ucapanPentadbir"}
	CaringFields   = []string{"objektif", "aktiviti"}
)

// Generator returns a plain text completion of prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Draft is generated text for one field. Only that field changes on the form.
type Draft struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

type Service struct {
	gen Generator
}

func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

// DraftAssembly drafts an assembly narrative field about theme.
func (svc *Service) DraftAssembly(ctx context.Context, field, theme string) (Draft, error) {
	if !allowed(AssemblyFields, field) {
		return Draft{}, errors.Wrapf(ErrUnknownField, "%s: %q", report.KindAssembly, field)
	}
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return Draft{}, ErrMissingTheme
	}
	prompt := fmt.Sprintf("Tulis satu huraian ringkas dan padat dalam Bahasa Melayu untuk perhimpunan sekolah. Tema: %s. Fokus kepada nilai murni murid.", theme)
	return svc.generate(ctx, field, prompt)
}

// DraftCaring drafts a Guru Penyayang narrative field. A blank program falls back to the default theme.
func (svc *Service) DraftCaring(ctx context.Context, field, program string) (Draft, error) {
	if !allowed(CaringFields, field) {
		return Draft{}, errors.Wrapf(ErrUnknownField, "%s: %q", report.KindCaring, field)
	}
	theme := strings.TrimSpace(program)
	if theme == "" {
		theme = defaultCaringTheme
	}
	prompt := fmt.Sprintf("Hasilkan satu %s ringkas dan menarik untuk laporan program Guru Penyayang sekolah. Tema: %s.", field, theme)
	return svc.generate(ctx, field, prompt)
}

// Draft dispatches on kind.
func (svc *Service) Draft(ctx context.Context, kind report.Kind, field, prompt string) (Draft, error) {
	switch kind {
	case report.KindAssembly:
		return svc.DraftAssembly(ctx, field, prompt)
	case report.KindCaring:
		return svc.DraftCaring(ctx, field, prompt)
	}
	return Draft{}, report.ErrUnknownKind
}

func (svc *Service) generate(ctx context.Context, field, prompt string) (Draft, error) {
	if svc.gen == nil {
		return Draft{}, ErrMissingCredential
	}
	text, err := svc.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Cause(err) == ErrMissingCredential {
			return Draft{}, ErrMissingCredential
		}
		return Draft{}, &GenerationError{Err: err}
	}
	return Draft{Field: field, Text: strings.TrimSpace(text)}, nil
}

// GenerationError wraps a failed generation call. errors.Cause of it is ErrGeneration.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return ErrGeneration.Error() + ": " + e.Err.Error() }
func (e *GenerationError) Cause() error  { return ErrGeneration }
func (e *GenerationError) Unwrap() error { return e.Err }

func allowed(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
