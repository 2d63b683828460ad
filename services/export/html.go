// Package exportsvc renders reports as printable HTML, PDF and XLSX documents.
package exportsvc

import (
	"bytes"
	"html/template"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/report"
	appfs "github.com/skmethodistpj/laporan/fs"
)

const (
	printTemplatesDir = "assets/templates/print"

	DefaultSchoolName  = "SK METHODIST PETALING JAYA"
	DefaultCoordinator = "PN RITA SELVAMALAR"

	// NoContent stands in for a blank narrative section.
	NoContent = "Tiada maklumat."
)

var ErrNoReports = errors.New("no reports selected")

type Options struct {
	SchoolName  string
	Coordinator string // signs caring reports as Penyelaras Guru Penyayang
	LogoURL     string
	// AutoPrint opens the browser print dialog once the document has loaded.
	AutoPrint bool
}

type Exporter struct {
	opts     Options
	md       goldmark.Markdown
	assembly *template.Template
	caring   *template.Template
}

// OptionsFrom reads the print options from the app configuration.
func OptionsFrom(conf *core.Config) Options {
	return Options{
		SchoolName:  conf.SchoolName,
		Coordinator: conf.Print.Coordinator,
		LogoURL:     conf.Print.LogoURL,
		AutoPrint:   conf.Print.AutoPrint,
	}
}

func New(opts Options) (*Exporter, error) {
	if strings.TrimSpace(opts.SchoolName) == "" {
		opts.SchoolName = DefaultSchoolName
	}
	if strings.TrimSpace(opts.Coordinator) == "" {
		opts.Coordinator = DefaultCoordinator
	}

	e := &Exporter{
		opts: opts,
		// raw HTML in narratives is dropped, goldmark's default
		md: goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps())),
	}
	var err error
	if e.assembly, err = e.parse("assembly.gohtml"); err != nil {
		return nil, err
	}
	if e.caring, err = e.parse("caring.gohtml"); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Exporter) parse(name string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"date":     report.FormatDate,
		"clock":    report.FormatTime,
		"upper":    strings.ToUpper,
		"markdown": e.markdown,
		"images":   imageURLs,
	}).ParseFS(appfs.FS, path.Join(printTemplatesDir, name))
	return tmpl, errors.Wrapf(err, "parsing print template %s", name)
}

type printData struct {
	Options
	Reports interface{}
}

// AssemblyHTML writes one print page per report.
func (e *Exporter) AssemblyHTML(w io.Writer, reports []report.Assembly) error {
	if len(reports) == 0 {
		return ErrNoReports
	}
	return e.execute(w, e.assembly, reports)
}

// CaringHTML writes one OPR page per report.
func (e *Exporter) CaringHTML(w io.Writer, reports []report.Caring) error {
	if len(reports) == 0 {
		return ErrNoReports
	}
	return e.execute(w, e.caring, reports)
}

func (e *Exporter) execute(w io.Writer, tmpl *template.Template, reports interface{}) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, printData{Options: e.opts, Reports: reports}); err != nil {
		return errors.Wrap(err, "rendering print document")
	}
	_, err := buf.WriteTo(w)
	return err
}

func (e *Exporter) markdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return template.HTML("<p>" + NoContent + "</p>")
	}
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

// imageURLs keeps the embedded images html/template would otherwise reject as unsafe URLs.
func imageURLs(imgs report.Images) []template.URL {
	var urls []template.URL
	for _, img := range imgs {
		if isImageDataURI(img) {
			urls = append(urls, template.URL(img))
		}
	}
	return urls
}

func isImageDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
}
