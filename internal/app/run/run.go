// Package run mengorkestrasi tahap generate: ekstraksi record, render surat,
// konversi PDF, lalu pembundelan arsip + sample + report.
package run

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/config"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/convert"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/docgen"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/excelx"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/infra/fsx"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/letter"
)

const (
	ArchiveName = "SPTJM_PDF.zip"
	SampleName  = "SPTJM_sample.zip"
	ReportName  = "SPTJM_generate_report.csv"
)

// Execute menjalankan satu run generate tanpa progress output.
func Execute(ctx context.Context, eff config.EffectiveConfig) (domain.GenerateReport, error) {
	return ExecuteWithObserver(ctx, eff, nil)
}

// ExecuteWithObserver menjalankan satu run generate.
//
// Hanya error struktural pra-run yang dikembalikan sebagai error (sheet tidak
// terbaca, SchemaError, soffice tidak ditemukan, direktori output tidak bisa
// dibuat). Begitu loop per-record mulai, setiap kegagalan diturunkan jadi
// baris FAILED dan run jalan terus: satu baris rusak tidak boleh menghentikan
// batch. Report selalu ditulis, termasuk saat run dibatalkan di tengah.
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, obs Observer) (domain.GenerateReport, error) {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	extractStarted := time.Now()
	table, err := excelx.ReadSheet(eff.Excel, eff.Sheet)
	if err != nil {
		return domain.GenerateReport{}, err
	}

	people, skipped, err := excelx.ExtractPenerima(table)
	if err != nil {
		return domain.GenerateReport{}, err
	}

	// Jendela seleksi: limit memotong prefix urutan ekstraksi, bukan sampling.
	if eff.Limit > 0 && len(people) > eff.Limit {
		people = people[:eff.Limit]
	}

	soffice, err := convert.FindSoffice(eff.SofficePath)
	if err != nil {
		return domain.GenerateReport{}, err
	}

	if obs != nil {
		obs.OnPhaseDone("extract", map[string]any{
			"rows":    len(table.Rows),
			"records": len(people),
			"skipped": skipped,
		}, time.Since(extractStarted))
	}

	docxDir := filepath.Join(eff.OutDir, "docx")
	pdfDir := filepath.Join(eff.OutDir, "pdf")
	for _, d := range []string{docxDir, pdfDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return domain.GenerateReport{}, fmt.Errorf("gagal membuat direktori output %q: %w", d, err)
		}
	}

	rr := domain.GenerateReport{
		Excel:       eff.Excel,
		Sheet:       table.Sheet,
		OutDir:      eff.OutDir,
		StartedAt:   started,
		SkippedRows: skipped,
		Rows:        make([]domain.GenerateRow, 0, len(people)),
	}

	// Tanggal surat dipatok sekali per run supaya seluruh batch konsisten.
	letterDate := time.Now()
	tpl := letter.Default()

	type pdfEntry struct {
		name string
		path string
	}
	pdfs := make([]pdfEntry, 0, len(people))

	total := len(people)
	for i, p := range people {
		// Titik berhenti bersih: antar record, tidak pernah di tengah konversi.
		if ctx.Err() != nil {
			break
		}

		oneStarted := time.Now()
		row := generateOne(ctx, tpl, p, letterDate, soffice, docxDir, pdfDir, eff.ConvertTimeout)
		rr.Rows = append(rr.Rows, row)

		if row.Status == domain.StatusSuccess {
			pdfs = append(pdfs, pdfEntry{name: row.File, path: filepath.Join(pdfDir, row.File)})
		}

		if obs != nil {
			obs.OnItemDone(i+1, total, row, time.Since(oneStarted))
		}
	}

	// Bundling tetap jalan untuk hasil parsial: yang sudah jadi tetap sah.
	bundleStarted := time.Now()

	archive, err := buildZip(pdfs, func(e pdfEntry) (string, string) { return e.name, e.path })
	if err != nil {
		return rr, fmt.Errorf("gagal membangun arsip: %w", err)
	}
	if err := fsx.WriteFileAtomicReplace(eff.OutDir, ArchiveName, archive); err != nil {
		return rr, fmt.Errorf("gagal menulis %s: %w", ArchiveName, err)
	}

	// Sample = prefix dari deretan sukses, bukan acak: run ulang dengan input
	// identik harus menghasilkan sample yang sama.
	sampleN := eff.Sample
	if sampleN > len(pdfs) {
		sampleN = len(pdfs)
	}
	sample, err := buildZip(pdfs[:sampleN], func(e pdfEntry) (string, string) { return e.name, e.path })
	if err != nil {
		return rr, fmt.Errorf("gagal membangun sample: %w", err)
	}
	if err := fsx.WriteFileAtomicReplace(eff.OutDir, SampleName, sample); err != nil {
		return rr, fmt.Errorf("gagal menulis %s: %w", SampleName, err)
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()

	var csvBuf bytes.Buffer
	if err := rr.WriteCSV(&csvBuf); err != nil {
		return rr, fmt.Errorf("gagal menyusun report CSV: %w", err)
	}
	if err := fsx.WriteFileAtomicReplace(eff.OutDir, ReportName, csvBuf.Bytes()); err != nil {
		return rr, fmt.Errorf("gagal menulis %s: %w", ReportName, err)
	}

	if obs != nil {
		obs.OnPhaseDone("bundle", map[string]any{
			"archived": len(pdfs),
			"sample":   sampleN,
		}, time.Since(bundleStarted))
	}

	return rr, nil
}

// generateOne memproses satu penerima: render docx lalu konversi PDF.
// Semua kegagalan dipetakan jadi baris FAILED; tidak ada error yang naik.
func generateOne(ctx context.Context, tpl letter.Template, p domain.Penerima, letterDate time.Time, soffice, docxDir, pdfDir string, timeout time.Duration) domain.GenerateRow {
	row := domain.GenerateRow{NIP: p.NIP, Nama: p.Nama}

	docxName := letter.Filename(p, "docx")
	pdfName := letter.Filename(p, "pdf")

	var buf bytes.Buffer
	if err := docgen.Write(&buf, tpl, p, letterDate); err != nil {
		row.Status = domain.StatusFailed
		row.ErrorCode = domain.ErrCodeIOFailed
		row.Reason = err.Error()
		return row
	}
	if err := fsx.WriteFileAtomicReplace(docxDir, docxName, buf.Bytes()); err != nil {
		row.Status = domain.StatusFailed
		row.ErrorCode = domain.ErrCodeIOFailed
		row.Reason = fmt.Sprintf("gagal menulis docx: %v", err)
		return row
	}

	if _, err := convert.ToPDF(ctx, soffice, filepath.Join(docxDir, docxName), pdfDir, timeout); err != nil {
		row.Status = domain.StatusFailed
		row.ErrorCode = convert.Code(err)
		if row.ErrorCode == "" {
			row.ErrorCode = domain.ErrCodeConvertFailed
		}
		row.Reason = err.Error()
		return row
	}

	row.Status = domain.StatusSuccess
	row.File = pdfName
	return row
}

// buildZip membundel file ke arsip zip in-memory dengan urutan entri stabil
// (urutan record) dan nama entri deterministik.
func buildZip[T any](items []T, nameAndPath func(T) (string, string)) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, it := range items {
		name, path := nameAndPath(it)
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(b); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
