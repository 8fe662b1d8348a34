// Package docgen menyusun dokumen perantara (.docx) untuk satu penerima:
// halaman surat pernyataan + halaman lampiran proposal. Konversi ke format
// final bukan urusan paket ini.
package docgen

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fumiama/go-docx"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/letter"
)

// Lebar tabel dalam twips; halaman A4 dengan margin default ~9026 twips.
const pageWidth = 9026

// Ukuran font dalam half-point (gaya OOXML): 12pt = "24".
const (
	sizeTitle = "24"
	sizeBody  = "22"
	sizeTable = "20"
)

// Write merender surat untuk satu penerima ke w.
//
// Kebijakan substitusi lenient berlaku di semua teks template: token yang
// tidak dikenal tercetak apa adanya, tidak pernah jadi error. Penerima tanpa
// proposal menghasilkan tabel lampiran berisi header saja (bukan error).
func Write(w io.Writer, tpl letter.Template, p domain.Penerima, now time.Time) error {
	vars := letter.Vars(p, now)

	doc := docx.New().WithDefaultTheme()

	// ===== Halaman 1: pernyataan =====
	for _, judul := range tpl.Judul {
		para := doc.AddParagraph().Justification("center")
		para.AddText(letter.Render(judul, vars)).Size(sizeTitle).Bold()
	}
	doc.AddParagraph()

	doc.AddParagraph().AddText(letter.Render(tpl.Pembuka, vars)).Size(sizeBody)

	identitas := [][2]string{
		{"Nama", ": " + p.Nama},
		{"NIP", ": " + p.NIP},
		{"Fakultas", ": " + p.Fakultas},
		{"Nomor Rekening", ": " + p.Rekening},
		{"Nama Bank", ": " + p.Bank},
	}
	idTbl := doc.AddTable(len(identitas), 2, pageWidth, nil)
	for i, kv := range identitas {
		row := idTbl.TableRows[i]
		row.TableCells[0].AddParagraph().AddText(kv[0]).Size(sizeBody)
		row.TableCells[1].AddParagraph().AddText(kv[1]).Size(sizeBody)
	}
	doc.AddParagraph()

	doc.AddParagraph().AddText(letter.Render(tpl.Penegasan, vars)).Size(sizeBody)

	stmtTbl := doc.AddTable(len(tpl.Pernyataan), 2, pageWidth, nil)
	for i, txt := range tpl.Pernyataan {
		row := stmtTbl.TableRows[i]
		noPara := row.TableCells[0].AddParagraph().Justification("center")
		noPara.AddText(strconv.Itoa(i + 1)).Size(sizeBody)
		txtPara := row.TableCells[1].AddParagraph().Justification("both")
		txtPara.AddText(letter.Render(txt, vars)).Size(sizeBody)
	}
	doc.AddParagraph()

	ttd := doc.AddParagraph().Justification("right")
	ttd.AddText(fmt.Sprintf("%s,     %s", letter.Render(tpl.Kota, vars), letter.FormatTanggal(now))).Size(sizeBody)
	doc.AddParagraph().Justification("right").AddText("Yang menyatakan,").Size(sizeBody)
	doc.AddParagraph()
	// Placeholder meterai dicetak abu-abu supaya jelas bukan bagian surat.
	doc.AddParagraph().Justification("right").AddText(letter.Render(tpl.Meterai, vars)).Size(sizeBody).Color("A0A0A0")
	doc.AddParagraph()
	doc.AddParagraph().Justification("right").AddText(p.Nama).Size(sizeBody)
	doc.AddParagraph().Justification("right").AddText("NIP. " + p.NIP).Size(sizeBody)

	// ===== Halaman 2: lampiran =====
	doc.AddParagraph().AddPageBreaks()

	intro := doc.AddParagraph().Justification("both")
	intro.AddText(letter.Render(tpl.LampiranIntro, vars)).Size(sizeBody)

	lampTbl := doc.AddTable(1+len(p.Proposal), 4, pageWidth, nil)
	for i, h := range tpl.LampiranHeader {
		para := lampTbl.TableRows[0].TableCells[i].AddParagraph()
		para.AddText(h).Size(sizeTable).Bold()
	}
	for i, prop := range p.Proposal {
		row := lampTbl.TableRows[i+1]
		values := [4]string{
			prop.NoProp,
			prop.Judul,
			prop.Skema,
			letter.FormatRupiah(prop.Dana),
		}
		for j, v := range values {
			row.TableCells[j].AddParagraph().AddText(v).Size(sizeTable)
		}
	}

	doc.AddParagraph()
	doc.AddParagraph().Justification("right").AddText("Tanda Tangan").Size(sizeTable)

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("gagal menulis docx: %w", err)
	}
	return nil
}
