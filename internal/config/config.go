package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// ErrCodeNotFound berarti run tanpa argumen tapi tidak ada sptjm.json di cwd.
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid berarti file konfigurasi tidak bisa dibaca/di-parse,
	// atau ada field yang tidak valid.
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingExcel berarti run tanpa argumen dan sptjm.json tidak punya field excel.
	ErrCodeMissingExcel = "config_missing_excel"
)

const (
	// DefaultSample: jumlah PDF pertama yang dibundel sebagai sample cek-cepat.
	DefaultSample = 5
	// DefaultDelay: jeda antar email (anti limit provider).
	DefaultDelay = 700 * time.Millisecond
	// DefaultConvertTimeout: batas satu kali panggilan LibreOffice per dokumen.
	DefaultConvertTimeout = 120 * time.Second

	DefaultSubject = "SPTJM - {nama} ({nip})"
	DefaultBody    = "Yth. Bapak/Ibu {nama},\n\nBerikut kami kirimkan file SPTJM (PDF).\n\nTerima kasih.\n"
)

// CLIArgs memuat argumen yang diekspos CLI, plus info "apakah diset eksplisit"
// supaya prioritas override bisa diimplementasikan (mis. --live=false harus
// bisa menimpa live:true di sptjm.json).
type CLIArgs struct {
	Excel string

	Sheet    string
	SheetSet bool

	Out    string
	OutSet bool

	Sample    int
	SampleSet bool

	Limit    int
	LimitSet bool

	Live    bool
	LiveSet bool

	// Confirm hanya lewat CLI; tidak ada di file (gating harus sadar, bukan warisan).
	Confirm bool

	Delay    float64
	DelaySet bool

	Map    string
	MapSet bool

	Subject    string
	SubjectSet bool

	Body    string
	BodySet bool
}

// FileConfig sesuai sptjm.json.
type FileConfig struct {
	Excel                 string   `json:"excel"`
	Sheet                 string   `json:"sheet"`
	Out                   string   `json:"out"`
	Sample                int      `json:"sample"`
	Limit                 int      `json:"limit"`
	Live                  *bool    `json:"live"`
	DelaySeconds          *float64 `json:"delay_seconds"`
	ConvertTimeoutSeconds int      `json:"convert_timeout_seconds"`
	Subject               string   `json:"subject"`
	Body                  string   `json:"body"`
	Map                   string   `json:"map"`
}

// SMTP adalah konfigurasi transport keluar, dibaca sekali saat proses start
// (dari .env / environment), tidak pernah dibaca ulang di tengah run.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Pass     string
	FromName string
}

// Ready mengembalikan true kalau konfigurasi minimal untuk kirim live lengkap.
func (s SMTP) Ready() bool {
	return s.Host != "" && s.User != "" && s.Pass != ""
}

// EffectiveConfig adalah hasil merge final; layer implementasi langsung
// memakainya tanpa menghitung ulang default/prioritas.
type EffectiveConfig struct {
	Excel  string
	Sheet  string
	OutDir string

	Sample int
	// Limit 0 berarti proses semua record.
	Limit int

	Live    bool
	Confirm bool
	Delay   time.Duration

	MapPath string
	Subject string
	Body    string

	SofficePath    string
	ConvertTimeout time.Duration

	SMTP SMTP
}

// Error adalah error terstruktur fase konfigurasi (bawa error_code).
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s: file konfigurasi %q tidak ditemukan", e.Code, e.Path)
	case ErrCodeMissingExcel:
		return fmt.Sprintf("%s: file konfigurasi %q tidak punya field wajib excel", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s: konfigurasi %q tidak valid: %v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: konfigurasi %q tidak valid", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code mengekstrak error_code dari error; bukan *Error berarti string kosong.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEnv membaca .env (best-effort; tidak ada file bukan error) lalu
// mengembalikan konfigurasi SMTP + path soffice dari environment.
func LoadEnv() (SMTP, string) {
	_ = godotenv.Load()

	port := 587
	if v := strings.TrimSpace(os.Getenv("SMTP_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			port = p
		}
	}

	user := strings.TrimSpace(os.Getenv("SMTP_USER"))
	from := strings.TrimSpace(os.Getenv("SMTP_FROM_NAME"))
	if from == "" {
		from = user
	}

	return SMTP{
		Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Port:     port,
		User:     user,
		Pass:     os.Getenv("SMTP_PASS"),
		FromName: from,
	}, strings.TrimSpace(os.Getenv("SOFFICE_PATH"))
}

// LoadEffective menemukan dan membaca sptjm.json lalu merge dengan CLI.
//
// Aturan penemuan (tetap):
//  1. CLI memberi excel: coba baca sptjm.json di direktori file Excel (opsional)
//  2. CLI tanpa excel: wajib ada <cwd>/sptjm.json, dan harus memuat excel
//
// Prioritas override (tetap): CLI > file > default.
func LoadEffective(cwd string, cli CLIArgs, smtp SMTP, sofficePath string) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Excel) != "" {
		excelAbs := absCleanFrom(cwdAbs, cli.Excel)
		cfgPath := filepath.Join(filepath.Dir(excelAbs), "sptjm.json")

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return merge(excelAbs, cwdAbs, cli, fc, cfgPath, smtp, sofficePath)
	}

	cfgPath := filepath.Join(cwdAbs, "sptjm.json")
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Excel) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingExcel, Path: cfgPath}
	}

	excelAbs := absCleanFrom(cwdAbs, fc.Excel)
	return merge(excelAbs, cwdAbs, cli, fc, cfgPath, smtp, sofficePath)
}

func merge(excelAbs, cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string, smtp SMTP, sofficePath string) (EffectiveConfig, error) {
	sheet := fc.Sheet
	if cli.SheetSet {
		sheet = cli.Sheet
	}

	// out: CLI > file > <dir excel>/out
	out := filepath.Join(filepath.Dir(excelAbs), "out")
	if cli.OutSet {
		out = absCleanFrom(cwdAbs, cli.Out)
	} else if strings.TrimSpace(fc.Out) != "" {
		out = absCleanFrom(cwdAbs, fc.Out)
	}

	sample := DefaultSample
	if cli.SampleSet {
		sample = cli.Sample
	} else if fc.Sample != 0 {
		sample = fc.Sample
	}
	// Rentang sample: [1, 20].
	if sample < 1 {
		sample = 1
	}
	if sample > 20 {
		sample = 20
	}

	limit := fc.Limit
	if cli.LimitSet {
		limit = cli.Limit
	}
	if limit < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("limit tidak boleh negatif: %d", limit)}
	}

	// live: CLI > file > default false (dry-run dulu, kirim belakangan).
	live := false
	if cli.LiveSet {
		live = cli.Live
	} else if fc.Live != nil {
		live = *fc.Live
	}

	delay := DefaultDelay
	if cli.DelaySet {
		delay = time.Duration(cli.Delay * float64(time.Second))
	} else if fc.DelaySeconds != nil {
		delay = time.Duration(*fc.DelaySeconds * float64(time.Second))
	}
	if delay < 0 || delay > 5*time.Second {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("delay harus di rentang [0, 5] detik")}
	}

	timeout := DefaultConvertTimeout
	if fc.ConvertTimeoutSeconds > 0 {
		timeout = time.Duration(fc.ConvertTimeoutSeconds) * time.Second
	} else if fc.ConvertTimeoutSeconds < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("convert_timeout_seconds tidak boleh negatif")}
	}

	mapPath := ""
	if cli.MapSet {
		mapPath = absCleanFrom(cwdAbs, cli.Map)
	} else if strings.TrimSpace(fc.Map) != "" {
		mapPath = absCleanFrom(cwdAbs, fc.Map)
	}

	subject := DefaultSubject
	if cli.SubjectSet {
		subject = cli.Subject
	} else if strings.TrimSpace(fc.Subject) != "" {
		subject = fc.Subject
	}

	body := DefaultBody
	if cli.BodySet {
		body = cli.Body
	} else if strings.TrimSpace(fc.Body) != "" {
		body = fc.Body
	}

	return EffectiveConfig{
		Excel:          excelAbs,
		Sheet:          strings.TrimSpace(sheet),
		OutDir:         out,
		Sample:         sample,
		Limit:          limit,
		Live:           live,
		Confirm:        cli.Confirm,
		Delay:          delay,
		MapPath:        mapPath,
		Subject:        subject,
		Body:           body,
		SofficePath:    sofficePath,
		ConvertTimeout: timeout,
		SMTP:           smtp,
	}, nil
}

// absCleanFrom menjadikan p clean + absolute relatif terhadap base.
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig membaca dan mem-parse sptjm.json.
// exists=false kalau file tidak ada (bukan error).
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
