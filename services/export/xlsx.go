package exportsvc

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/skmethodistpj/laporan/core/report"
	"github.com/skmethodistpj/laporan/core/tracker"
)

const (
	SheetAssembly   = "Perhimpunan"
	SheetCaring     = "Guru Penyayang"
	SheetCompletion = "Pemantauan"
)

var (
	assemblyHeaders = []string{
		"Minggu", "Tarikh", "Hari", "Masa", "Tempat", "Kumpulan", "Tema", "Huraian",
		"Laporan Guru Bertugas (Minggu Lepas)", "Pesanan Guru Bertugas (Minggu Ini)",
		"Pentadbir Berucap", "Ucapan Pentadbir", "Bilangan Gambar", "Disediakan Oleh",
	}
	caringHeaders = []string{
		"Program", "Tarikh", "Hari", "Lokasi", "Sasaran", "Objektif", "Aktiviti",
		"Bilangan Gambar", "Disediakan Oleh",
	}
	completionHeaders = []string{"Minggu", "Status", "Bilangan Laporan"}

	weekStatusLabels = map[tracker.WeekStatus]string{
		tracker.Filled:   "Selesai",
		tracker.Current:  "Minggu Semasa",
		tracker.PastDue:  "Belum Diisi",
		tracker.Upcoming: "Akan Datang",
	}
)

type sheetTable struct {
	name    string
	headers []string
	rows    [][]interface{}
	widths  []float64
}

// AssemblyXLSX writes the reports as one row each, images counted rather than embedded.
func (e *Exporter) AssemblyXLSX(w io.Writer, reports []report.Assembly) error {
	rows := make([][]interface{}, 0, len(reports))
	for _, r := range reports {
		var week interface{} = r.Minggu
		if n, ok := r.Week(); ok {
			week = n
		}
		rows = append(rows, []interface{}{
			week, report.FormatDate(r.Tarikh), r.Hari, report.FormatTime(r.Masa), r.Tempat, r.Kumpulan,
			r.Tema, r.Huraian, r.UcapanGuruLepas, r.UcapanGuruIni, r.PentadbirBerucap, r.UcapanPentadbir,
			len(r.Images), r.DisediakanOleh,
		})
	}
	return writeWorkbook(w, sheetTable{
		name:    SheetAssembly,
		headers: assemblyHeaders,
		rows:    rows,
		widths:  []float64{8, 12, 10, 10, 20, 10, 30, 50, 50, 50, 20, 50, 10, 28},
	})
}

func (e *Exporter) CaringXLSX(w io.Writer, reports []report.Caring) error {
	rows := make([][]interface{}, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []interface{}{
			r.Program, report.FormatDate(r.Tarikh), r.Hari, r.Location(), r.Sasaran,
			r.Objektif, r.Aktiviti, len(r.Images), r.DisediakanOleh,
		})
	}
	return writeWorkbook(w, sheetTable{
		name:    SheetCaring,
		headers: caringHeaders,
		rows:    rows,
		widths:  []float64{28, 12, 10, 24, 24, 50, 50, 10, 28},
	})
}

// CompletionXLSX writes the week by week completion of the assembly reports with the totals above.
func (e *Exporter) CompletionXLSX(w io.Writer, s tracker.Summary) error {
	rows := make([][]interface{}, 0, len(s.Weeks)+5)
	rows = append(rows,
		[]interface{}{"Minggu Semasa", s.CurrentWeek},
		[]interface{}{"Minggu Diisi", s.Filled, s.TotalWeeks},
		[]interface{}{"Peratus Siap (%)", s.Percentage},
		[]interface{}{"Minggu Tertunggak", s.Missed},
		nil,
	)
	start := len(rows) + 1
	for _, ws := range s.Weeks {
		rows = append(rows, []interface{}{ws.Week, weekStatusLabels[ws.Status], len(ws.Reports)})
	}
	return writeWorkbook(w, sheetTable{
		name:    SheetCompletion,
		headers: completionHeaders,
		rows:    rows,
		widths:  []float64{20, 16, 18},
	}, start)
}

// writeWorkbook writes a single-sheet workbook. The header row goes above data row headerAt when given,
// otherwise first.
func writeWorkbook(w io.Writer, t sheetTable, headerAt ...int) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", t.name); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E9E9E9"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	textStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return errors.Wrap(err, "creating text style")
	}

	row := 1
	writeHeader := func() error {
		for col, h := range t.headers {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(t.name, cell, h); err != nil {
				return err
			}
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(t.headers), row)
		row++
		return f.SetCellStyle(t.name, first, last, headerStyle)
	}

	header := 0
	if len(headerAt) > 0 {
		header = headerAt[0] - 1
	}
	for i, values := range append(t.rows, nil) {
		if i == header {
			if err := writeHeader(); err != nil {
				return errors.Wrap(err, "writing header")
			}
		}
		if i == len(t.rows) {
			break
		}
		if len(values) > 0 {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(t.name, cell, &values); err != nil {
				return errors.Wrap(err, "writing row")
			}
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(t.name, cell, last, textStyle); err != nil {
				return errors.Wrap(err, "styling row")
			}
		}
		row++
	}

	for col, width := range t.widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.name, name, name, width); err != nil {
			return errors.Wrap(err, "sizing columns")
		}
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}
