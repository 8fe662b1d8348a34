package domain

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestGenerateReportFinalize(t *testing.T) {
	rr := GenerateReport{
		StartedAt:  time.Date(2025, 5, 1, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600)),
		FinishedAt: time.Date(2025, 5, 1, 8, 5, 0, 0, time.FixedZone("WIB", 7*3600)),
		Rows: []GenerateRow{
			{NIP: "1", Status: StatusSuccess},
			{NIP: "2", Status: StatusFailed},
			{NIP: "3", Status: StatusSuccess},
		},
	}
	rr.Finalize()

	if rr.Summary.Success != 2 || rr.Summary.Failed != 1 {
		t.Fatalf("summary = %+v, harusnya success=2 failed=1", rr.Summary)
	}
	if rr.StartedAt.Location() != time.UTC || rr.FinishedAt.Location() != time.UTC {
		t.Error("Finalize harus menormalkan waktu ke UTC")
	}
}

func TestGenerateReportFinalizeIdempoten(t *testing.T) {
	rr := GenerateReport{Rows: []GenerateRow{{Status: StatusSuccess}}}
	rr.Finalize()
	rr.Finalize()
	if rr.Summary.Success != 1 {
		t.Fatalf("Finalize dua kali mengubah summary: %+v", rr.Summary)
	}
}

func TestGenerateReportWriteCSV(t *testing.T) {
	rr := GenerateReport{
		Rows: []GenerateRow{
			{NIP: "101", Nama: "Budi", Status: StatusSuccess},
			{NIP: "102", Nama: "Siti, S.Pd", Status: StatusFailed, Reason: "konversi gagal"},
		},
	}

	var buf bytes.Buffer
	if err := rr.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("CSV harus 3 baris (header + 2 data), dapat %d: %q", len(lines), buf.String())
	}
	if lines[0] != "NIP,Nama,Status,Reason" {
		t.Errorf("header CSV = %q", lines[0])
	}
	if lines[1] != "101,Budi,SUCCESS," {
		t.Errorf("baris sukses = %q", lines[1])
	}
	// Nama berkoma harus di-quote oleh encoder CSV.
	if !strings.Contains(lines[2], `"Siti, S.Pd"`) {
		t.Errorf("nama berkoma tidak di-quote: %q", lines[2])
	}
}

func TestEmailReportFinalize(t *testing.T) {
	rr := EmailReport{
		Rows: []EmailRow{
			{Status: EmailStatusOK},
			{Status: EmailStatusFail},
			{Status: EmailStatusSkip},
			{Status: EmailStatusSkip},
			{Status: EmailStatusDryRun},
		},
	}
	rr.Finalize()

	if rr.Summary.OK != 1 || rr.Summary.Fail != 1 || rr.Summary.Skip != 2 || rr.Summary.DryRun != 1 {
		t.Fatalf("summary email = %+v", rr.Summary)
	}
}

func TestEmailReportWriteCSV(t *testing.T) {
	rr := EmailReport{
		Rows: []EmailRow{
			{NIP: "1", Nama: "Budi", Email: "budi@usk.ac.id", Status: EmailStatusOK, SentAt: "2025-05-01T01:00:00Z"},
			{NIP: "2", Nama: "Siti", Status: EmailStatusSkip, Detail: "email_missing: tidak ada alamat"},
		},
	}

	var buf bytes.Buffer
	if err := rr.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "NIP,Nama,Email,Status,Timestamp,Detail" {
		t.Errorf("header CSV email = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,Budi,budi@usk.ac.id,OK,2025-05-01T01:00:00Z") {
		t.Errorf("baris OK = %q", lines[1])
	}
	// SKIP: kolom timestamp kosong (tidak ada aktivitas kirim).
	if !strings.Contains(lines[2], "SKIP,,") {
		t.Errorf("baris SKIP harus punya timestamp kosong: %q", lines[2])
	}
}
