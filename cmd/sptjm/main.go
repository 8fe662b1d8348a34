package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/app/run"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/config"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/convert"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/excelx"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/infra/fsx"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/mailer"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "generate":
		if code := generateCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "send":
		if code := sendCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "perintah tidak dikenal: %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func generateCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printGenerateUsage()
			return 0
		}
	}

	cli, err := parseArgs(args, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "argumen salah: %v\n\n", err)
		printGenerateUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gagal membaca direktori kerja: %v\n", err)
		return 1
	}

	smtp, soffice := config.LoadEnv()
	eff, err := config.LoadEffective(cwd, cli, smtp, soffice)
	if err != nil {
		emitGenerateReport(reportForFatal(cli, err))
		return 1
	}

	// Interrupt berhenti bersih di batas record; hasil parsial tetap dibundel.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr, err := run.ExecuteWithObserver(ctx, eff, obs)
	if err != nil {
		emitGenerateReport(reportForFatal(cli, err))
		return 1
	}

	emitGenerateReport(rr)
	if interactive {
		fmt.Fprintf(progressW, "arsip: %s\n", filepath.Join(eff.OutDir, run.ArchiveName))
		fmt.Fprintf(progressW, "report: %s\n", filepath.Join(eff.OutDir, run.ReportName))
	}
	if rr.Summary.Failed == 0 {
		return 0
	}
	return 1
}

func sendCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printSendUsage()
			return 0
		}
	}

	cli, err := parseArgs(args, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "argumen salah: %v\n\n", err)
		printSendUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gagal membaca direktori kerja: %v\n", err)
		return 1
	}

	smtp, soffice := config.LoadEnv()
	eff, err := config.LoadEffective(cwd, cli, smtp, soffice)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	// Kredensial dicek sebelum baris pertama: mode live tanpa SMTP lengkap
	// harus gagal total, bukan gagal per-baris.
	if eff.Live && !eff.SMTP.Ready() {
		fmt.Fprintf(os.Stderr, "%s: konfigurasi SMTP belum lengkap (SMTP_HOST/SMTP_USER/SMTP_PASS di .env)\n",
			domain.ErrCodeConfigInvalid)
		return 1
	}

	table, err := excelx.ReadSheet(eff.Excel, eff.Sheet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", fatalCode(err), err)
		return 1
	}
	people, _, err := excelx.ExtractPenerima(table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", fatalCode(err), err)
		return 1
	}
	if eff.Limit > 0 && len(people) > eff.Limit {
		people = people[:eff.Limit]
	}

	// Rekonsiliasi alamat: tabel mapping hanya mengisi email yang kosong,
	// tidak pernah menimpa alamat dari file utama.
	if eff.MapPath != "" {
		mt, err := excelx.ReadSheet(eff.MapPath, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: gagal membaca tabel mapping: %v\n", fatalCode(err), err)
			return 1
		}
		m, dupes, err := excelx.BuildEmailMap(mt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: tabel mapping: %v\n", fatalCode(err), err)
			return 1
		}
		filled := excelx.ApplyEmailMap(people, m)
		if w, ok := pickProgressWriter(); ok {
			fmt.Fprintf(w, "mapping: terisi=%d duplikat=%d\n", filled, dupes)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng := mailer.NewEngine(eff, mailer.NewSMTPSender(eff.SMTP))
	if eff.Confirm {
		eng.Confirm()
	}

	progressW, interactive := pickProgressWriter()
	if interactive {
		mode := "dry-run"
		if eff.Live {
			mode = "LIVE"
		}
		fmt.Fprintf(progressW, "[%s] SPTJM send (%s) total=%d delay=%s\n",
			time.Now().Format("15:04:05"), mode, len(people), eff.Delay)
		eng.OnRowDone = func(idx, total int, row domain.EmailRow) {
			if row.Detail != "" {
				fmt.Fprintf(progressW, "[%d/%d] %s %s: %s\n", idx, total, row.Nama, row.Status, row.Detail)
				return
			}
			fmt.Fprintf(progressW, "[%d/%d] %s %s %s\n", idx, total, row.Nama, row.Status, row.Email)
		}
	}

	rr, err := eng.Dispatch(ctx, people)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	var csvBuf bytes.Buffer
	if err := rr.WriteCSV(&csvBuf); err != nil {
		fmt.Fprintf(os.Stderr, "gagal menyusun report email: %v\n", err)
		return 1
	}
	if err := fsx.WriteFileAtomicReplace(eff.OutDir, mailer.ReportName, csvBuf.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "gagal menulis %s: %v\n", mailer.ReportName, err)
		return 1
	}

	emitEmailReport(rr)
	if interactive {
		fmt.Fprintf(progressW, "report: %s\n", filepath.Join(eff.OutDir, mailer.ReportName))
	}
	if rr.Summary.Fail == 0 {
		return 0
	}
	return 1
}

// parseArgs mem-parse argumen bersama kedua subcommand; flag khusus send
// (map/live/confirm/delay/subject/body) hanya diterima saat send=true.
func parseArgs(args []string, send bool) (config.CLIArgs, error) {
	var cli config.CLIArgs

	needValue := func(name string, i *int) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s butuh satu nilai", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--sheet":
			v, err := needValue(a, &i)
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Sheet, cli.SheetSet = v, true
		case strings.HasPrefix(a, "--sheet="):
			cli.Sheet, cli.SheetSet = strings.TrimPrefix(a, "--sheet="), true

		case a == "--out":
			v, err := needValue(a, &i)
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Out, cli.OutSet = v, true
		case strings.HasPrefix(a, "--out="):
			cli.Out, cli.OutSet = strings.TrimPrefix(a, "--out="), true

		case a == "--sample" || strings.HasPrefix(a, "--sample="):
			v := strings.TrimPrefix(a, "--sample=")
			if a == "--sample" {
				var err error
				if v, err = needValue(a, &i); err != nil {
					return config.CLIArgs{}, err
				}
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return config.CLIArgs{}, fmt.Errorf("--sample harus angka, bukan %q", v)
			}
			cli.Sample, cli.SampleSet = n, true

		case a == "--limit" || strings.HasPrefix(a, "--limit="):
			v := strings.TrimPrefix(a, "--limit=")
			if a == "--limit" {
				var err error
				if v, err = needValue(a, &i); err != nil {
					return config.CLIArgs{}, err
				}
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return config.CLIArgs{}, fmt.Errorf("--limit harus angka, bukan %q", v)
			}
			cli.Limit, cli.LimitSet = n, true

		case send && a == "--map":
			v, err := needValue(a, &i)
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Map, cli.MapSet = v, true
		case send && strings.HasPrefix(a, "--map="):
			cli.Map, cli.MapSet = strings.TrimPrefix(a, "--map="), true

		case send && a == "--live":
			cli.Live, cli.LiveSet = true, true
		case send && strings.HasPrefix(a, "--live="):
			switch v := strings.TrimPrefix(a, "--live="); v {
			case "true":
				cli.Live = true
			case "false":
				cli.Live = false
			default:
				return config.CLIArgs{}, fmt.Errorf("--live hanya true atau false, bukan %q", v)
			}
			cli.LiveSet = true

		case send && a == "--confirm":
			cli.Confirm = true

		case send && (a == "--delay" || strings.HasPrefix(a, "--delay=")):
			v := strings.TrimPrefix(a, "--delay=")
			if a == "--delay" {
				var err error
				if v, err = needValue(a, &i); err != nil {
					return config.CLIArgs{}, err
				}
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return config.CLIArgs{}, fmt.Errorf("--delay harus angka detik, bukan %q", v)
			}
			cli.Delay, cli.DelaySet = f, true

		case send && a == "--subject":
			v, err := needValue(a, &i)
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Subject, cli.SubjectSet = v, true
		case send && strings.HasPrefix(a, "--subject="):
			cli.Subject, cli.SubjectSet = strings.TrimPrefix(a, "--subject="), true

		case send && a == "--body":
			v, err := needValue(a, &i)
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.Body, cli.BodySet = v, true
		case send && strings.HasPrefix(a, "--body="):
			cli.Body, cli.BodySet = strings.TrimPrefix(a, "--body="), true

		case strings.HasPrefix(a, "-"):
			return config.CLIArgs{}, fmt.Errorf("flag tidak dikenal %q", a)

		default:
			if cli.Excel != "" {
				return config.CLIArgs{}, fmt.Errorf("file Excel ganda: %q dan %q", cli.Excel, a)
			}
			cli.Excel = a
		}
	}

	return cli, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `Pemakaian:
  sptjm generate [file.xlsx] [--sheet S] [--out DIR] [--sample K] [--limit N]
  sptjm send     [file.xlsx] [--map emails.xlsx] [--live] [--confirm] [--delay DETIK]
                 [--subject TPL] [--body TPL] [--out DIR] [--sheet S] [--limit N]

Perintah:
  generate  buat surat SPTJM (docx -> PDF) + arsip + report
  send      kirim PDF hasil generate lewat email (default dry-run)

Gunakan "sptjm <perintah> --help" untuk penjelasan flag.
`)
}

func printGenerateUsage() {
	fmt.Fprint(os.Stdout, `Pemakaian:
  sptjm generate [file.xlsx] [--sheet S] [--out DIR] [--sample K] [--limit N]

Tanpa argumen file, konfigurasi dibaca dari sptjm.json di direktori kerja.

Flag:
  --sheet     nama sheet (default: sheet pertama)
  --out       direktori output (default: <dir excel>/out)
  --sample    jumlah PDF pertama yang dibundel sebagai sample, 1-20 (default 5)
  --limit     proses N record pertama saja; 0 = semua (default 0)
  -h, --help  tampilkan bantuan
`)
}

func printSendUsage() {
	fmt.Fprint(os.Stdout, `Pemakaian:
  sptjm send [file.xlsx] [--map emails.xlsx] [--live] [--confirm] [--delay DETIK]
             [--subject TPL] [--body TPL] [--out DIR] [--sheet S] [--limit N]

Default dry-run: seluruh alur jalan tanpa satu email pun terkirim.
Mode live butuh --live DAN --confirm; kredensial SMTP dibaca dari .env
(SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS, SMTP_FROM_NAME).

Flag:
  --map       tabel mapping NIP->Email untuk mengisi alamat yang kosong
  --live      kirim sungguhan (tanpa flag ini: dry-run)
  --confirm   gerbang konfirmasi mode live; tanpa ini live ditolak
  --delay     jeda antar email dalam detik, 0-5 (default 0.7)
  --subject   template subjek; token {nama} {nip} dst (default "SPTJM - {nama} ({nip})")
  --body      template isi email, token sama dengan subjek
  -h, --help  tampilkan bantuan
`)
}

// fatalCode memetakan error fatal pra-run ke error_code untuk report.
func fatalCode(err error) string {
	if c := config.Code(err); c != "" {
		return c
	}
	if c := convert.Code(err); c != "" {
		return c
	}
	var se *excelx.SchemaError
	if errors.As(err, &se) {
		return domain.ErrCodeSchemaInvalid
	}
	return domain.ErrCodeIOFailed
}

// reportForFatal membungkus error fatal jadi report satu baris FAILED,
// supaya kontrak output (JSON di stdout non-TTY) tetap berlaku.
func reportForFatal(cli config.CLIArgs, err error) domain.GenerateReport {
	now := time.Now().UTC()
	rr := domain.GenerateReport{
		Excel:      cli.Excel,
		StartedAt:  now,
		FinishedAt: now,
		Rows: []domain.GenerateRow{{
			Status:    domain.StatusFailed,
			ErrorCode: fatalCode(err),
			Reason:    err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func emitGenerateReport(rr domain.GenerateReport) {
	summary := fmt.Sprintf("selesai: sukses=%d gagal=%d baris_dilewati=%d",
		rr.Summary.Success, rr.Summary.Failed, rr.SkippedRows)

	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, summary)
		for _, row := range rr.Rows {
			if row.Status != domain.StatusFailed {
				continue
			}
			who := row.Nama
			if who == "" {
				who = "<fatal>"
			}
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", who, row.ErrorCode, row.Reason)
		}
		return
	}

	// stdout non-TTY: stdout hanya berisi satu JSON report; ringkasan ke stderr.
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(os.Stderr, summary)
}

func emitEmailReport(rr domain.EmailReport) {
	summary := fmt.Sprintf("selesai: ok=%d gagal=%d dilewati=%d dry_run=%d",
		rr.Summary.OK, rr.Summary.Fail, rr.Summary.Skip, rr.Summary.DryRun)

	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, summary)
		for _, row := range rr.Rows {
			if row.Status != domain.EmailStatusFail {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s <%s>: %s\n", row.Nama, row.Email, row.Detail)
		}
		return
	}

	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(os.Stderr, summary)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// Progres hanya di terminal interaktif; default stderr supaya stdout
	// tetap bersih untuk kontrak JSON.
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
