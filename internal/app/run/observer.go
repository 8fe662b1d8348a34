package run

import (
	"time"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/config"
	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
)

// Observer memisahkan "progress/fase/hasil per-record" dari alur eksekusi inti.
//
// Batasan:
//   - paket run hanya mengirim event, tidak pernah menulis output sendiri
//     (stdout dijaga untuk kontrak JSON).
//   - eksekusi serial, tapi implementasi Observer tetap wajib aman dipanggil
//     dari goroutine ticker milik CLI.
type Observer interface {
	// OnStart dipanggil seawal mungkin supaya user langsung melihat konfigurasi efektif.
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone dipanggil saat satu fase selesai (extract, bundle).
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone dipanggil tiap satu penerima selesai diproses.
	OnItemDone(idx, total int, row domain.GenerateRow, dur time.Duration)
	// OnProgress dipakai keepalive (ticker di CLI; run tidak wajib memanggil).
	OnProgress(done, total, success, failed int, elapsed time.Duration)
}
