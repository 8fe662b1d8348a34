package domain

import (
	"encoding/csv"
	"io"
	"time"
)

const (
	// Status per-baris report generate.
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

const (
	// Status per-baris report email.
	EmailStatusOK     = "OK"
	EmailStatusFail   = "FAIL"
	EmailStatusSkip   = "SKIP"
	EmailStatusDryRun = "DRY-RUN"
)

const (
	ErrCodeSchemaInvalid     = "schema_invalid"
	ErrCodeConverterNotFound = "converter_not_found"
	ErrCodeConvertTimeout    = "convert_timeout"
	ErrCodeConvertFailed     = "convert_failed"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeSMTPFailed        = "smtp_failed"
	ErrCodeEmailMissing      = "email_missing"
	ErrCodeNotConfirmed      = "not_confirmed"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissing     = "config_missing_excel"
)

// GenerateReport adalah output stabil tahap generate (stdout JSON + CSV).
// Urutan Rows = urutan record hasil ekstraksi; tidak pernah di-sort ulang,
// supaya dua run dengan input identik menghasilkan report identik.
type GenerateReport struct {
	Excel  string `json:"excel"`
	Sheet  string `json:"sheet"`
	OutDir string `json:"out_dir"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// SkippedRows: baris data yang identitasnya tidak lengkap
	// (bukan error, hanya dihitung).
	SkippedRows int `json:"skipped_rows"`

	Summary GenerateSummary `json:"summary"`
	Rows    []GenerateRow   `json:"rows"`
}

type GenerateSummary struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

type GenerateRow struct {
	NIP  string `json:"nip"`
	Nama string `json:"nama"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Reason    string `json:"reason"`

	// File: nama entri PDF di arsip (deterministik dari Nama+NIP); kosong saat FAILED.
	File string `json:"file"`
}

// Finalize menormalkan waktu ke UTC dan menghitung summary dari Rows.
func (r *GenerateReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	var s GenerateSummary
	for _, row := range r.Rows {
		switch row.Status {
		case StatusSuccess:
			s.Success++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// WriteCSV menulis report generate dengan kolom tetap: NIP,Nama,Status,Reason.
// Reason kosong saat SUCCESS.
func (r *GenerateReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"NIP", "Nama", "Status", "Reason"}); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := cw.Write([]string{row.NIP, row.Nama, row.Status, row.Reason}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EmailReport adalah output stabil tahap kirim email.
type EmailReport struct {
	DryRun bool `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary EmailSummary `json:"summary"`
	Rows    []EmailRow   `json:"rows"`
}

type EmailSummary struct {
	OK     int `json:"ok"`
	Fail   int `json:"fail"`
	Skip   int `json:"skip"`
	DryRun int `json:"dry_run"`
}

type EmailRow struct {
	NIP   string `json:"nip"`
	Nama  string `json:"nama"`
	Email string `json:"email"`

	Status string `json:"status"`
	// SentAt dalam RFC3339 UTC; terisi untuk OK/FAIL/DRY-RUN, kosong untuk SKIP
	// (SKIP diputuskan sebelum ada aktivitas kirim apa pun).
	SentAt string `json:"sent_at"`
	Detail string `json:"detail"`
}

func (r *EmailReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	var s EmailSummary
	for _, row := range r.Rows {
		switch row.Status {
		case EmailStatusOK:
			s.OK++
		case EmailStatusFail:
			s.Fail++
		case EmailStatusSkip:
			s.Skip++
		case EmailStatusDryRun:
			s.DryRun++
		}
	}
	r.Summary = s
}

// WriteCSV menulis report email: NIP,Nama,Email,Status,Timestamp,Detail.
func (r *EmailReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"NIP", "Nama", "Email", "Status", "Timestamp", "Detail"}); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := cw.Write([]string{row.NIP, row.Nama, row.Email, row.Status, row.SentAt, row.Detail}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
