package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tulisJSON(t *testing.T, dir, isi string) string {
	t.Helper()
	path := filepath.Join(dir, "sptjm.json")
	if err := os.WriteFile(path, []byte(isi), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEffectiveTanpaApapun(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadEffective(dir, CLIArgs{}, SMTP{}, "")
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("code = %q, harusnya %q (err: %v)", Code(err), ErrCodeNotFound, err)
	}
}

func TestLoadEffectiveFileTanpaExcel(t *testing.T) {
	dir := t.TempDir()
	tulisJSON(t, dir, `{"sheet":"Data"}`)

	_, err := LoadEffective(dir, CLIArgs{}, SMTP{}, "")
	if Code(err) != ErrCodeMissingExcel {
		t.Fatalf("code = %q, harusnya %q", Code(err), ErrCodeMissingExcel)
	}
}

func TestLoadEffectiveJSONRusak(t *testing.T) {
	dir := t.TempDir()
	tulisJSON(t, dir, `{bukan json`)

	_, err := LoadEffective(dir, CLIArgs{}, SMTP{}, "")
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("code = %q, harusnya %q", Code(err), ErrCodeInvalid)
	}
}

func TestLoadEffectiveDefault(t *testing.T) {
	dir := t.TempDir()
	tulisJSON(t, dir, `{"excel":"data.xlsx"}`)

	eff, err := LoadEffective(dir, CLIArgs{}, SMTP{}, "")
	if err != nil {
		t.Fatalf("LoadEffective error: %v", err)
	}

	if eff.Excel != filepath.Join(dir, "data.xlsx") {
		t.Errorf("excel = %q", eff.Excel)
	}
	if eff.OutDir != filepath.Join(dir, "out") {
		t.Errorf("out default = %q, harusnya <dir excel>/out", eff.OutDir)
	}
	if eff.Sample != DefaultSample {
		t.Errorf("sample = %d, harusnya %d", eff.Sample, DefaultSample)
	}
	if eff.Delay != DefaultDelay {
		t.Errorf("delay = %v, harusnya %v", eff.Delay, DefaultDelay)
	}
	if eff.ConvertTimeout != DefaultConvertTimeout {
		t.Errorf("convert timeout = %v", eff.ConvertTimeout)
	}
	if eff.Live {
		t.Error("default harus dry-run (live=false)")
	}
	if eff.Subject != DefaultSubject || eff.Body != DefaultBody {
		t.Error("subject/body default tidak terpasang")
	}
}

func TestLoadEffectivePrioritasCLI(t *testing.T) {
	dir := t.TempDir()
	tulisJSON(t, dir, `{"excel":"data.xlsx","sheet":"DariFile","sample":10,"live":true,"delay_seconds":2.0,"subject":"dari file"}`)

	cli := CLIArgs{
		Sheet: "DariCLI", SheetSet: true,
		Sample: 3, SampleSet: true,
		// --live=false harus bisa menimpa live:true di file.
		Live: false, LiveSet: true,
		Subject: "dari cli", SubjectSet: true,
	}
	eff, err := LoadEffective(dir, cli, SMTP{}, "")
	if err != nil {
		t.Fatal(err)
	}

	if eff.Sheet != "DariCLI" {
		t.Errorf("sheet = %q, CLI harus menang", eff.Sheet)
	}
	if eff.Sample != 3 {
		t.Errorf("sample = %d, CLI harus menang", eff.Sample)
	}
	if eff.Live {
		t.Error("--live=false harus menimpa live:true di file")
	}
	if eff.Delay != 2*time.Second {
		t.Errorf("delay = %v, file harus dipakai saat CLI tidak set", eff.Delay)
	}
	if eff.Subject != "dari cli" {
		t.Errorf("subject = %q", eff.Subject)
	}
}

func TestLoadEffectiveExcelDariCLI(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// sptjm.json di samping file Excel, bukan di cwd.
	tulisJSON(t, sub, `{"sheet":"Samping"}`)

	eff, err := LoadEffective(dir, CLIArgs{Excel: "sub/data.xlsx"}, SMTP{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if eff.Excel != filepath.Join(sub, "data.xlsx") {
		t.Errorf("excel = %q", eff.Excel)
	}
	if eff.Sheet != "Samping" {
		t.Errorf("sheet = %q, harusnya terbaca dari sptjm.json di samping excel", eff.Sheet)
	}
}

func TestLoadEffectiveExcelDariCLITanpaConfig(t *testing.T) {
	dir := t.TempDir()

	// Tanpa sptjm.json sama sekali: excel dari CLI cukup.
	eff, err := LoadEffective(dir, CLIArgs{Excel: "data.xlsx"}, SMTP{}, "")
	if err != nil {
		t.Fatalf("excel dari CLI tanpa config harus jalan: %v", err)
	}
	if eff.Excel != filepath.Join(dir, "data.xlsx") {
		t.Errorf("excel = %q", eff.Excel)
	}
}

func TestLoadEffectiveClampSample(t *testing.T) {
	dir := t.TempDir()
	tulisJSON(t, dir, `{"excel":"data.xlsx"}`)

	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultSample}, // 0 = tidak diset di file; SampleSet menentukan
		{-3, 1},
		{1, 1},
		{20, 20},
		{100, 20},
	}
	for _, tc := range tests {
		cli := CLIArgs{Sample: tc.in, SampleSet: tc.in != 0}
		eff, err := LoadEffective(dir, cli, SMTP{}, "")
		if err != nil {
			t.Fatalf("sample=%d: %v", tc.in, err)
		}
		if eff.Sample != tc.want {
			t.Errorf("sample %d -> %d, harusnya %d", tc.in, eff.Sample, tc.want)
		}
	}
}

func TestLoadEffectiveValidasi(t *testing.T) {
	dir := t.TempDir()
	tulisJSON(t, dir, `{"excel":"data.xlsx"}`)

	if _, err := LoadEffective(dir, CLIArgs{Limit: -1, LimitSet: true}, SMTP{}, ""); Code(err) != ErrCodeInvalid {
		t.Errorf("limit negatif: code = %q", Code(err))
	}
	if _, err := LoadEffective(dir, CLIArgs{Delay: 9, DelaySet: true}, SMTP{}, ""); Code(err) != ErrCodeInvalid {
		t.Errorf("delay di luar rentang: code = %q", Code(err))
	}
	if _, err := LoadEffective(dir, CLIArgs{Delay: -0.5, DelaySet: true}, SMTP{}, ""); Code(err) != ErrCodeInvalid {
		t.Errorf("delay negatif: code = %q", Code(err))
	}
}

func TestCodeBukanConfigError(t *testing.T) {
	if got := Code(errors.New("error biasa")); got != "" {
		t.Fatalf("Code(error biasa) = %q, harusnya kosong", got)
	}
	if got := Code(nil); got != "" {
		t.Fatalf("Code(nil) = %q", got)
	}
}

func TestSMTPReady(t *testing.T) {
	tests := []struct {
		s    SMTP
		want bool
	}{
		{SMTP{Host: "smtp.gmail.com", User: "u", Pass: "p"}, true},
		{SMTP{Host: "", User: "u", Pass: "p"}, false},
		{SMTP{Host: "h", User: "", Pass: "p"}, false},
		{SMTP{Host: "h", User: "u", Pass: ""}, false},
	}
	for i, tc := range tests {
		if got := tc.s.Ready(); got != tc.want {
			t.Errorf("kasus %d: Ready() = %v, harusnya %v", i, got, tc.want)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.usk.ac.id")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_USER", "humas@usk.ac.id")
	t.Setenv("SMTP_PASS", "rahasia")
	t.Setenv("SMTP_FROM_NAME", "")
	t.Setenv("SOFFICE_PATH", "/opt/libreoffice/soffice")

	smtp, soffice := LoadEnv()
	if smtp.Host != "smtp.usk.ac.id" {
		t.Errorf("host = %q", smtp.Host)
	}
	if smtp.Port != 587 {
		t.Errorf("port default = %d, harusnya 587", smtp.Port)
	}
	// FROM_NAME kosong jatuh ke user.
	if smtp.FromName != "humas@usk.ac.id" {
		t.Errorf("from name = %q", smtp.FromName)
	}
	if soffice != "/opt/libreoffice/soffice" {
		t.Errorf("soffice = %q", soffice)
	}
}

func TestLoadEnvPortEksplisit(t *testing.T) {
	t.Setenv("SMTP_PORT", "2525")
	smtp, _ := LoadEnv()
	if smtp.Port != 2525 {
		t.Errorf("port = %d, harusnya 2525", smtp.Port)
	}
}
