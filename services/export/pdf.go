package exportsvc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core/report"
)

const (
	pdfMargin   = 15.0
	pdfLineH    = 5.5
	photoBoxW   = 70.0
	photoBoxH   = 87.5
	photoGap    = 10.0
	labelColW   = 35.0
	fontFamily  = "Arial"
	maxPdfPhoto = 2
)

type pdfDoc struct {
	*gofpdf.Fpdf
	tr func(string) string
}

func newPDF() *pdfDoc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	return &pdfDoc{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *pdfDoc) contentWidth() float64 {
	w, _ := d.GetPageSize()
	return w - 2*pdfMargin
}

func (d *pdfDoc) heading(text string, size float64, style string) {
	d.SetFont(fontFamily, style, size)
	d.CellFormat(0, 7, d.tr(text), "", 1, "C", false, 0, "")
}

// row writes label/value pairs as one bordered table row.
func (d *pdfDoc) row(pairs ...string) {
	n := len(pairs) / 2
	valueW := (d.contentWidth() - float64(n)*labelColW) / float64(n)
	for i := 0; i+1 < len(pairs); i += 2 {
		d.SetFont(fontFamily, "B", 9)
		d.SetFillColor(242, 242, 242)
		d.CellFormat(labelColW, 8, d.tr(pairs[i]), "1", 0, "L", true, 0, "")
		d.SetFont(fontFamily, "", 10)
		d.CellFormat(valueW, 8, d.tr(pairs[i+1]), "1", 0, "L", false, 0, "")
	}
	d.Ln(-1)
}

func (d *pdfDoc) section(title, body string) {
	d.SetFont(fontFamily, "B", 9)
	d.SetFillColor(233, 233, 233)
	d.CellFormat(0, 7, d.tr(strings.ToUpper(title)), "1", 1, "L", true, 0, "")
	d.SetFont(fontFamily, "", 10)
	if strings.TrimSpace(body) == "" {
		body = NoContent
	}
	d.MultiCell(0, pdfLineH, d.tr(strings.TrimSpace(body)), "1", "J", false)
	d.Ln(3)
}

func (d *pdfDoc) photos(id string, imgs report.Images, empty string) {
	var placed int
	y := d.GetY()
	_, pageH := d.GetPageSize()
	for i, img := range imgs {
		if placed == maxPdfPhoto {
			break
		}
		name, opts, w, h, ok := d.register(fmt.Sprintf("%s-%d", id, i), img)
		if !ok {
			continue
		}
		if placed == 0 && y+photoBoxH > pageH-pdfMargin {
			d.AddPage()
			y = d.GetY()
		}
		x := pdfMargin + (d.contentWidth()-2*photoBoxW-photoGap)/2 + float64(placed)*(photoBoxW+photoGap)
		d.Rect(x, y, photoBoxW, photoBoxH, "D")
		d.ImageOptions(name, x+(photoBoxW-w)/2, y+(photoBoxH-h)/2, w, h, false, opts, 0, "")
		placed++
	}
	if placed == 0 {
		d.SetFont(fontFamily, "I", 10)
		d.SetTextColor(153, 153, 153)
		d.CellFormat(0, 12, d.tr(empty), "1", 1, "C", false, 0, "")
		d.SetTextColor(0, 0, 0)
		return
	}
	d.SetY(y + photoBoxH + 5)
}

// register loads a data URI image and returns its size scaled into the photo box.
// Images that cannot be decoded are skipped.
func (d *pdfDoc) register(name, uri string) (string, gofpdf.ImageOptions, float64, float64, bool) {
	var opts gofpdf.ImageOptions
	if !isImageDataURI(uri) {
		return "", opts, 0, 0, false
	}
	data, err := base64.StdEncoding.DecodeString(uri[strings.Index(uri, ";base64,")+len(";base64,"):])
	if err != nil {
		return "", opts, 0, 0, false
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return "", opts, 0, 0, false
	}
	switch format {
	case "png":
		opts.ImageType = "PNG"
	case "jpeg":
		opts.ImageType = "JPG"
	case "gif":
		opts.ImageType = "GIF"
	default:
		return "", opts, 0, 0, false
	}

	d.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if d.Err() {
		// drop the image, keep the document
		d.ClearError()
		return "", opts, 0, 0, false
	}

	w, h := photoBoxW, photoBoxW*float64(cfg.Height)/float64(cfg.Width)
	if h > photoBoxH {
		w, h = photoBoxH*float64(cfg.Width)/float64(cfg.Height), photoBoxH
	}
	return name, opts, w, h, true
}

var signatureCaptions = []string{"Disediakan oleh:", "Disemak oleh:", "Disahkan oleh:"}

// signatures writes a row of name/role boxes under the captions above.
func (d *pdfDoc) signatures(boxes ...[2]string) {
	d.Ln(12)
	w := d.contentWidth() / float64(len(boxes))
	d.SetFont(fontFamily, "", 9)
	for i := range boxes {
		d.CellFormat(w, 5, d.tr(signatureCaptions[i%len(signatureCaptions)]), "", 0, "C", false, 0, "")
	}
	d.Ln(-1)
	d.Ln(14)
	d.SetFont(fontFamily, "B", 9)
	for _, b := range boxes {
		d.CellFormat(w, 5, d.tr(b[0]), "T", 0, "C", false, 0, "")
	}
	d.Ln(-1)
	d.SetFont(fontFamily, "", 8)
	for _, b := range boxes {
		d.CellFormat(w, 5, d.tr(b[1]), "", 0, "C", false, 0, "")
	}
	d.Ln(-1)
}

func (d *pdfDoc) output(w io.Writer) error {
	if d.Err() {
		return errors.Wrap(d.Error(), "building pdf")
	}
	return errors.Wrap(d.Output(w), "writing pdf")
}

// AssemblyPDF writes one page per report.
func (e *Exporter) AssemblyPDF(w io.Writer, reports []report.Assembly) error {
	if len(reports) == 0 {
		return ErrNoReports
	}
	d := newPDF()
	d.SetTitle("Laporan Perhimpunan", true)
	d.SetAuthor(e.opts.SchoolName, true)

	for _, r := range reports {
		d.AddPage()
		d.heading(strings.ToUpper(e.opts.SchoolName), 14, "B")
		d.heading("LAPORAN DIGITAL PERHIMPUNAN RASMI MINGGUAN", 11, "BU")
		d.Ln(4)

		d.row("Minggu", r.Minggu, "Kumpulan", r.Kumpulan)
		d.row("Tarikh / Hari", fmt.Sprintf("%s (%s)", report.FormatDate(r.Tarikh), strings.ToUpper(r.Hari)), "Tempat", r.Tempat)
		d.row("Masa", report.FormatTime(r.Masa), "Tema", r.Tema)
		d.Ln(4)

		d.section("Huraian Perincian Tema", r.Huraian)
		d.section("Laporan Guru Bertugas (Minggu Lepas)", r.UcapanGuruLepas)
		d.section("Pesanan Guru Bertugas (Minggu Ini)", r.UcapanGuruIni)
		d.section(fmt.Sprintf("Amanat / Ucapan Pentadbir (%s)", r.PentadbirBerucap), r.UcapanPentadbir)

		d.SetFont(fontFamily, "B", 9)
		d.SetFillColor(233, 233, 233)
		d.CellFormat(0, 7, d.tr("LENSA PERHIMPUNAN"), "1", 1, "L", true, 0, "")
		d.Ln(2)
		d.photos(r.ID, r.Images, "Tiada imej lensa perhimpunan dimuat naik.")

		d.signatures(
			[2]string{r.DisediakanOleh, "Guru Bertugas Mingguan"},
			[2]string{"", "Penyelaras Perhimpunan"},
			[2]string{"", "Pentadbir Sekolah"},
		)
	}
	return d.output(w)
}

// CaringPDF writes one OPR page per report.
func (e *Exporter) CaringPDF(w io.Writer, reports []report.Caring) error {
	if len(reports) == 0 {
		return ErrNoReports
	}
	d := newPDF()
	d.SetTitle("OPR Guru Penyayang", true)
	d.SetAuthor(e.opts.SchoolName, true)

	for _, r := range reports {
		d.AddPage()
		d.heading("LAPORAN OPR LAPORAN GURU PENYAYANG SK METHODIST PJ", 13, "B")
		d.heading("UNIT HAL EHWAL MURID (HEM)", 11, "")
		d.Ln(4)

		d.row("PROGRAM / AKTIVITI", strings.ToUpper(r.Program))
		d.row("TARIKH", report.FormatDate(r.Tarikh), "HARI", strings.ToUpper(r.Hari))
		d.row("LOKASI", strings.ToUpper(r.Location()), "SASARAN", strings.ToUpper(r.Sasaran))
		d.Ln(4)

		d.section("Objektif Program", r.Objektif)
		d.section("Laporan Aktiviti / Ringkasan Program", r.Aktiviti)

		d.SetFont(fontFamily, "B", 9)
		d.SetFillColor(230, 230, 230)
		d.CellFormat(0, 7, d.tr("LENSA BERGAMBAR (EVIDENCE)"), "1", 1, "L", true, 0, "")
		d.Ln(2)
		d.photos(r.ID, r.Images, "TIADA GAMBAR AKTIVITI")

		d.signatures(
			[2]string{strings.ToUpper(r.DisediakanOleh), "Guru Bertugas"},
			[2]string{e.opts.Coordinator, "Penyelaras Guru Penyayang"},
			[2]string{"PENTADBIR SEKOLAH", "SK Methodist PJ"},
		)
	}
	return d.output(w)
}
