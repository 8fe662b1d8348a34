// Package letter memuat teks template surat SPTJM dan mesin substitusi
// token {nama}-style yang dipakai bersama oleh isi surat dan subject/body
// email.
package letter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
)

// Grammar token tetap: {nama_token}. Token yang tidak dikenal dibiarkan
// apa adanya (kebijakan lenient: field baru tidak boleh merusak template lama).
var tokenRE = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Render mengganti token yang dikenal dan meloloskan sisanya verbatim.
// Murni string-rewrite; tidak ada reflection atau error.
func Render(tpl string, vars map[string]string) string {
	return tokenRE.ReplaceAllStringFunc(tpl, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}

// Vars menyiapkan token standar untuk satu penerima.
// tanggal memakai waktu eksekusi supaya surat dan email konsisten dalam satu run.
func Vars(p domain.Penerima, now time.Time) map[string]string {
	return map[string]string{
		"nama":     p.Nama,
		"nip":      p.NIP,
		"fakultas": p.Fakultas,
		"norek":    p.Rekening,
		"bank":     p.Bank,
		"email":    p.Email,
		"tanggal":  FormatTanggal(now),
	}
}

var printerID = message.NewPrinter(language.Indonesian)

// FormatRupiah memformat angka dengan pemisah ribuan titik (1000000 -> 1.000.000).
// Sel yang bukan angka diloloskan apa adanya; desimal ala Excel ("1000000.0")
// dibulatkan ke bawah.
func FormatRupiah(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return printerID.Sprintf("%d", n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return printerID.Sprintf("%d", int64(f))
	}
	return s
}

var namaBulan = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatTanggal memformat tanggal gaya surat: "02 Januari 2006".
func FormatTanggal(t time.Time) string {
	return fmt.Sprintf("%02d %s %d", t.Day(), namaBulan[t.Month()-1], t.Year())
}

// Filename menghasilkan nama file deterministik per penerima:
// SPTJM_<slug nama>_<nip>.<ext>. Dua run dengan input sama wajib
// menghasilkan nama yang sama (dipakai untuk idempotensi arsip dan
// pencarian attachment di tahap kirim).
func Filename(p domain.Penerima, ext string) string {
	base := strings.Trim(fmt.Sprintf("SPTJM_%s_%s", slug.Make(p.Nama), p.NIP), "_")
	if len(base) > 120 {
		base = base[:120]
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}

// Template adalah teks surat; semua string boleh memuat token {.,.}.
type Template struct {
	// Judul: baris judul di tengah halaman pertama.
	Judul []string
	// Pembuka sebelum tabel identitas.
	Pembuka string
	// Penegasan sebelum daftar pernyataan.
	Penegasan string
	// Pernyataan bernomor 1..N.
	Pernyataan []string
	// LampiranIntro membuka halaman kedua.
	LampiranIntro string
	// LampiranHeader: header tabel lampiran (4 kolom).
	LampiranHeader [4]string
	// Kota tanda tangan.
	Kota string
	// Meterai: teks placeholder meterai.
	Meterai string
}

// Default mengembalikan teks surat SPTJM standar Universitas Syiah Kuala.
func Default() Template {
	return Template{
		Judul: []string{
			"SURAT PERNYATAAN TANGGUNGJAWAB MUTLAK (SPTJM)",
			"Biaya Subimt Artikel/Insentif Publikasi/Opini Media Massa/Hak Kekayaan Intelektual",
		},
		Pembuka:   "Yang bertanda tangan di bawah ini:",
		Penegasan: "Menyatakan dengan sesungguhnya bahwa:",
		Pernyataan: []string{
			"Biaya Submit Artikel yang saya ajukan seperti yang tersebut pada lampiran belum pernah saya pertanggungjawabkan pada penelitian yang telah dilaksanakan, atau belum pernah menerima bantuan publikasi dari pihak/sumber dana lainnya, dan jika di kemudian hari terbukti bahwa biaya submit artikel yang saya ajukan telah pernah menerima bantuan publikasi dari pihak/sumber dana lainnya, maka saya akan mengembalikan dana insentif yang saya terima ke rekening Universitas Syiah Kuala.",
			"Biaya submit artikel yang saya ajukan seperti yang tersebut pada lampiran belum pernah dipertanggungjawabkan pada laporan penelitian dan belum pernah menerima bantuan publikasi dari sumber dana lain. Apabila di kemudian hari terbukti sebaliknya, saya bersedia mengembalikan dana yang telah diterima ke rekening Universitas Syiah Kuala.",
			"Artikel ilmiah/opini media massa/hak kekayaan intelektual yang diajukan seperti yang tersebut pada lampiran bebas plagiarisme dan merupakan karya asli.",
			"Artikel ilmiah/opini media massa/hak kekayaan intelektual yang diajukan seperti yang tersebut pada lampiran belum pernah menerima insentif pada periode sebelumnya maupun dari sumber dana lain.",
			"Saya bersedia mengembalikan dana insentif apabila di kemudian hari terbukti bahwa karya yang diajukan bukan milik saya, sudah pernah menerima insentif, atau tidak sesuai dengan ketentuan yang berlaku.",
			"Nomor rekening dan nama bank yang saya cantumkan benar dan aktif untuk menerima dana insentif.",
		},
		LampiranIntro:  "Lampiran Daftar Biaya Submit Artikel/Insentif Publikasi/Opini Media Massa/Hak Kekayaan Intelektual yang didanai atas nama {nama} sebagai berikut:",
		LampiranHeader: [4]string{"No. Proposal", "Judul Insentif", "Skema", "Jumlah Dana (Rp)"},
		Kota:           "Banda Aceh",
		Meterai:        "Materai 10000",
	}
}
