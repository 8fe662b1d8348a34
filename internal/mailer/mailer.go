// Package mailer menjalankan tahap kirim: satu email per penerima dengan
// lampiran PDF hasil tahap generate, dibatasi jeda antar kirim dan gerbang
// konfirmasi untuk mode live.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/config"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/letter"
)

const ReportName = "SPTJM_email_report.csv"

const sendTimeout = 30 * time.Second

// Message adalah satu email siap kirim; isi sudah dirender, tidak ada
// template lagi di bawah titik ini.
type Message struct {
	To         string
	Subject    string
	Body       string
	AttachPath string
	AttachName string
}

// Sender mengirim satu pesan. Implementasi produksi SMTPSender; test memakai
// perekam supaya properti "dry-run tidak menyentuh transport" bisa dibuktikan.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Error adalah error fatal tahap kirim (bawa error_code).
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeNotConfirmed:
		return fmt.Sprintf("%s: mode live butuh --confirm eksplisit; tidak ada satu pun email dikirim", e.Code)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Code, e.Err)
		}
		return e.Code
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

// SMTPSender mengirim lewat SMTP submission (STARTTLS wajib) memakai
// kredensial dari environment.
type SMTPSender struct {
	cfg config.SMTP
}

func NewSMTPSender(cfg config.SMTP) *SMTPSender { return &SMTPSender{cfg: cfg} }

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.User); err != nil {
		return err
	}
	if err := m.To(msg.To); err != nil {
		return err
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	m.AttachFile(msg.AttachPath, mail.WithFileName(msg.AttachName))

	c, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Pass),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(sendTimeout),
	)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}

// Fase hidup Engine. Transisi satu arah:
// armed -> confirmed (Confirm) -> dispatching (Dispatch) -> done.
// Dry-run boleh Dispatch langsung dari armed; live wajib lewat confirmed.
type phase int

const (
	phaseArmed phase = iota
	phaseConfirmed
	phaseDispatching
	phaseDone
)

// Engine menjalankan satu sesi kirim; tidak bisa dipakai ulang.
type Engine struct {
	eff    config.EffectiveConfig
	sender Sender

	phase phase

	// sleep dan now bisa ditukar di test; nil berarti default.
	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time

	// OnRowDone opsional, dipanggil tiap baris selesai (untuk progress CLI).
	OnRowDone func(idx, total int, row domain.EmailRow)
}

func NewEngine(eff config.EffectiveConfig, sender Sender) *Engine {
	return &Engine{eff: eff, sender: sender}
}

// Confirm mempersenjatai mode live. Tanpa panggilan ini Dispatch live
// ditolak sebelum menyentuh jaringan. Hanya sah dari fase armed.
func (e *Engine) Confirm() {
	if e.phase == phaseArmed {
		e.phase = phaseConfirmed
	}
}

// Dispatch memproses penerima dalam urutan ekstraksi.
//
// Keputusan per baris:
//   - tanpa alamat email, atau PDF-nya tidak ada di disk -> SKIP, diputuskan
//     sebelum ada aktivitas kirim apa pun;
//   - dry-run -> DRY-RUN: subjek/body tetap dirender, transport tidak disentuh;
//   - live -> kirim; gagal jadi FAIL dan loop jalan terus.
//
// Jeda hanya dipasang di antara dua percobaan kirim berurutan; baris SKIP
// tidak memicu jeda.
func (e *Engine) Dispatch(ctx context.Context, people []domain.Penerima) (domain.EmailReport, error) {
	switch e.phase {
	case phaseArmed:
		if e.eff.Live {
			return domain.EmailReport{}, &Error{Code: domain.ErrCodeNotConfirmed}
		}
	case phaseConfirmed:
		// ok
	default:
		return domain.EmailReport{}, &Error{
			Code: domain.ErrCodeNotConfirmed,
			Err:  errors.New("Engine sudah dipakai; buat sesi kirim baru"),
		}
	}
	e.phase = phaseDispatching
	defer func() { e.phase = phaseDone }()

	nowFn := e.now
	if nowFn == nil {
		nowFn = time.Now
	}
	sleepFn := e.sleep
	if sleepFn == nil {
		sleepFn = sleepCtx
	}

	rr := domain.EmailReport{
		DryRun:    !e.eff.Live,
		StartedAt: nowFn().UTC(),
		Rows:      make([]domain.EmailRow, 0, len(people)),
	}

	pdfDir := filepath.Join(e.eff.OutDir, "pdf")
	total := len(people)
	attempted := false

	for i, p := range people {
		// Pembatalan bersih antar baris; yang sudah tercatat tetap dilaporkan.
		if ctx.Err() != nil {
			break
		}

		row := domain.EmailRow{NIP: p.NIP, Nama: p.Nama, Email: p.Email}

		pdfName := letter.Filename(p, "pdf")
		pdfPath := filepath.Join(pdfDir, pdfName)

		switch {
		case p.Email == "":
			row.Status = domain.EmailStatusSkip
			row.Detail = domain.ErrCodeEmailMissing + ": tidak ada alamat email untuk NIP ini"

		case !fileExists(pdfPath):
			row.Status = domain.EmailStatusSkip
			row.Detail = fmt.Sprintf("PDF tidak ditemukan: %s (jalankan generate dulu)", pdfName)

		default:
			if attempted && e.eff.Delay > 0 {
				sleepFn(ctx, e.eff.Delay)
			}
			attempted = true

			vars := letter.Vars(p, nowFn())
			msg := Message{
				To:         p.Email,
				Subject:    letter.Render(e.eff.Subject, vars),
				Body:       letter.Render(e.eff.Body, vars),
				AttachPath: pdfPath,
				AttachName: pdfName,
			}

			row.SentAt = nowFn().UTC().Format(time.RFC3339)
			if !e.eff.Live {
				row.Status = domain.EmailStatusDryRun
				row.Detail = "simulasi; tidak ada email dikirim"
			} else if err := e.sender.Send(ctx, msg); err != nil {
				row.Status = domain.EmailStatusFail
				row.Detail = domain.ErrCodeSMTPFailed + ": " + err.Error()
			} else {
				row.Status = domain.EmailStatusOK
			}
		}

		rr.Rows = append(rr.Rows, row)
		if e.OnRowDone != nil {
			e.OnRowDone(i+1, total, row)
		}
	}

	rr.FinishedAt = nowFn().UTC()
	rr.Finalize()
	return rr, nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir() && fi.Size() > 0
}

// sleepCtx tidur paling lama d; bangun lebih awal kalau ctx dibatalkan.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
