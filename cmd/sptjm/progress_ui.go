package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/app/run"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/config"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI adalah progress sederhana untuk terminal interaktif.
//
// Aturan main:
//   - semua proses ditulis ke stderr (atau fallback stdout), tidak pernah
//     mengotori kontrak JSON di stdout
//   - run hanya mengirim event; cara tampil diputuskan di sini
//   - keepalive: konversi LibreOffice bisa lama per dokumen, jadi saat lama
//     tidak ada baris baru tetap muncul satu baris progres
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total   int
	done    int
	success int
	failed  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 10 * time.Second,
		tickerInterval:     3 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] SPTJM generate\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "konfigurasi (efektif):")
	fmt.Fprintf(p.w, "  excel: %s\n", eff.Excel)
	if eff.Sheet != "" {
		fmt.Fprintf(p.w, "  sheet: %s\n", eff.Sheet)
	}
	fmt.Fprintf(p.w, "  out: %s\n", eff.OutDir)
	fmt.Fprintf(p.w, "  sample: %d\n", eff.Sample)
	if eff.Limit > 0 {
		fmt.Fprintf(p.w, "  limit: %d\n", eff.Limit)
	}
	fmt.Fprintf(p.w, "  convert_timeout: %s\n", eff.ConvertTimeout)
	if eff.SofficePath != "" {
		fmt.Fprintf(p.w, "  soffice: %s\n", eff.SofficePath)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	p.mu.Unlock()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "extract":
		p.total = intField(fields, "records")
		fmt.Fprintf(p.w, "ekstraksi: baris=%d record=%d dilewati=%d (%s)\n",
			intField(fields, "rows"), p.total, intField(fields, "skipped"), formatShortDuration(dur),
		)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	case "bundle":
		fmt.Fprintf(p.w, "bundel: arsip=%d sample=%d (%s)\n",
			intField(fields, "archived"), intField(fields, "sample"), formatShortDuration(dur),
		)
	default:
		// Fase tak dikenal tetap dicetak, jangan hilang diam-diam.
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, row domain.GenerateRow, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total

	switch row.Status {
	case domain.StatusSuccess:
		p.success++
		fmt.Fprintf(p.w, "[%d/%d] %s OK %s (%s)\n",
			idx, total, row.Nama, row.File, formatShortDuration(dur),
		)
	case domain.StatusFailed:
		p.failed++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s (%s)\n",
			idx, total, row.Nama, row.ErrorCode, truncate(row.Reason, 160), formatShortDuration(dur),
		)
	}

	p.lastPrinted = time.Now()

	// Baris terakhir selesai: matikan ticker supaya tidak ada keepalive
	// muncul setelah ringkasan.
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) OnProgress(done, total, success, failed int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "progres: %d/%d sukses=%d gagal=%d berjalan=%s\n",
		done, total, success, failed, formatElapsed(elapsed),
	)
	p.lastPrinted = time.Now()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 10 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "progres: %d/%d sukses=%d gagal=%d berjalan=%s\n",
						p.done, p.total, p.success, p.failed, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-p.stopCh:
				return
			}
		}
	}()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return 0
	}
}
