// Package convert membungkus pemanggilan LibreOffice headless untuk
// mengubah dokumen perantara (.docx) menjadi PDF final.
//
// Satu panggilan = satu percobaan; tidak ada retry otomatis (keputusan
// retry/lanjut milik orkestrasi, bukan paket ini). Dokumen perantara
// dibiarkan di disk.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
)

// Error adalah error konversi terklasifikasi (bawa error_code untuk report).
type Error struct {
	// Code: converter_not_found | convert_timeout | convert_failed.
	Code   string
	Err    error
	Stderr string
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeConverterNotFound:
		return fmt.Sprintf("%s: LibreOffice tidak ditemukan: %v", e.Code, e.Err)
	case domain.ErrCodeConvertTimeout:
		return fmt.Sprintf("%s: LibreOffice melewati batas waktu: %v", e.Code, e.Err)
	default:
		msg := fmt.Sprintf("%s: konversi DOCX->PDF gagal", e.Code)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		if s := strings.TrimSpace(e.Stderr); s != "" {
			msg += " | stderr: " + s
		}
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code mengekstrak error_code; bukan *Error berarti string kosong.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// FindSoffice menentukan binary soffice yang dipakai.
//
// Override dari konfigurasi harus menunjuk file yang ada (salah path =
// converter_not_found, fatal sebelum run mulai); tanpa override, cari di PATH.
func FindSoffice(override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		if fi, err := os.Stat(override); err == nil && !fi.IsDir() {
			return override, nil
		}
		return "", &Error{
			Code: domain.ErrCodeConverterNotFound,
			Err:  fmt.Errorf("path soffice override tidak ditemukan: %q", override),
		}
	}

	for _, name := range []string{"soffice", "soffice.bin", "libreoffice"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", &Error{
		Code: domain.ErrCodeConverterNotFound,
		Err:  fmt.Errorf("LibreOffice tidak ditemukan di PATH; isi SOFFICE_PATH di .env"),
	}
}

// ToPDF mengonversi satu docx ke PDF di outDir, dibatasi timeout.
//
// Sukses didefinisikan ketat: file PDF ada di path yang diharapkan dan
// ukurannya > 0. Proses yang melewati timeout dibunuh (CommandContext)
// dan diklasifikasikan convert_timeout.
func ToPDF(ctx context.Context, soffice, docxPath, outDir string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	// Profil LibreOffice sekali pakai: instance headless paralel/bekas
	// sering rebutan profil default dan gagal diam-diam.
	profile, err := os.MkdirTemp("", "sptjm_lo_")
	if err != nil {
		return "", &Error{Code: domain.ErrCodeConvertFailed, Err: err}
	}
	defer os.RemoveAll(profile)

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, soffice,
		"--headless",
		"--nologo",
		"--nofirststartwizard",
		"-env:UserInstallation=file://"+filepath.ToSlash(profile),
		"--convert-to", "pdf:writer_pdf_Export",
		"--outdir", outDir,
		docxPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if cctx.Err() == context.DeadlineExceeded {
		return "", &Error{
			Code: domain.ErrCodeConvertTimeout,
			Err:  fmt.Errorf("melewati %s (convert DOCX->PDF)", timeout),
		}
	}
	if runErr != nil {
		return "", &Error{Code: domain.ErrCodeConvertFailed, Err: runErr, Stderr: stderr.String()}
	}

	base := strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))
	pdfPath := filepath.Join(outDir, base+".pdf")

	fi, err := os.Stat(pdfPath)
	if err != nil {
		return "", &Error{
			Code:   domain.ErrCodeConvertFailed,
			Err:    fmt.Errorf("konversi selesai tapi PDF tidak ditemukan: %q", pdfPath),
			Stderr: stderr.String(),
		}
	}
	if fi.Size() == 0 {
		return "", &Error{
			Code:   domain.ErrCodeConvertFailed,
			Err:    fmt.Errorf("PDF hasil konversi kosong: %q", pdfPath),
			Stderr: stderr.String(),
		}
	}
	return pdfPath, nil
}
