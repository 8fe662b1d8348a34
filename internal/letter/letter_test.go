package letter

import (
	"strings"
	"testing"
	"time"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
)

func TestRenderLenient(t *testing.T) {
	vars := map[string]string{"nama": "Budi", "nip": "197001011995121001"}

	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"token dikenal", "SPTJM - {nama} ({nip})", "SPTJM - Budi (197001011995121001)"},
		{"token tidak dikenal lolos verbatim", "Halo {nama}, ref {tiket}", "Halo Budi, ref {tiket}"},
		{"tanpa token", "teks polos", "teks polos"},
		{"kurung tidak lengkap", "nilai {nama", "nilai {nama"},
		{"token kosong bukan token", "{}", "{}"},
		{"token diawali angka bukan token", "{1nama}", "{1nama}"},
		{"token berulang", "{nama} dan {nama}", "Budi dan Budi"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.tpl, vars); got != tc.want {
				t.Errorf("Render(%q) = %q, harusnya %q", tc.tpl, got, tc.want)
			}
		})
	}
}

func TestVars(t *testing.T) {
	p := domain.Penerima{
		NIP:      "123",
		Nama:     "Siti",
		Fakultas: "MIPA",
		Rekening: "0012345",
		Bank:     "BSI",
		Email:    "siti@usk.ac.id",
	}
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.Local)

	vars := Vars(p, now)
	want := map[string]string{
		"nama":     "Siti",
		"nip":      "123",
		"fakultas": "MIPA",
		"norek":    "0012345",
		"bank":     "BSI",
		"email":    "siti@usk.ac.id",
		"tanggal":  "14 Maret 2025",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("Vars[%q] = %q, harusnya %q", k, vars[k], v)
		}
	}
}

func TestFormatRupiah(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1000000", "1.000.000"},
		{"2500000", "2.500.000"},
		{"500", "500"},
		{"1000000.0", "1.000.000"},
		{"", ""},
		{"  7500000  ", "7.500.000"},
		{"bukan angka", "bukan angka"},
		{"Rp 1.000", "Rp 1.000"},
	}
	for _, tc := range tests {
		if got := FormatRupiah(tc.in); got != tc.want {
			t.Errorf("FormatRupiah(%q) = %q, harusnya %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatTanggal(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2025, 1, 2, 0, 0, 0, 0, time.Local), "02 Januari 2025"},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.Local), "31 Desember 2024"},
		{time.Date(2025, 8, 17, 0, 0, 0, 0, time.Local), "17 Agustus 2025"},
	}
	for _, tc := range tests {
		if got := FormatTanggal(tc.in); got != tc.want {
			t.Errorf("FormatTanggal(%v) = %q, harusnya %q", tc.in, got, tc.want)
		}
	}
}

func TestFilename(t *testing.T) {
	p := domain.Penerima{Nama: "Prof. Dr. Budi Santoso, M.Sc.", NIP: "197001011995121001"}

	got := Filename(p, "pdf")
	want := "SPTJM_prof-dr-budi-santoso-m-sc_197001011995121001.pdf"
	if got != want {
		t.Fatalf("Filename = %q, harusnya %q", got, want)
	}

	// Deterministik: input sama, nama sama.
	if again := Filename(p, "pdf"); again != got {
		t.Fatalf("Filename tidak deterministik: %q vs %q", got, again)
	}

	// Ekstensi dengan titik di depan tidak dobel.
	if got := Filename(p, ".docx"); !strings.HasSuffix(got, "_197001011995121001.docx") {
		t.Errorf("Filename ext dengan titik = %q", got)
	}
}

func TestFilenameCap(t *testing.T) {
	p := domain.Penerima{Nama: strings.Repeat("Nama Sangat Panjang ", 20), NIP: "99"}
	got := Filename(p, "pdf")
	base := strings.TrimSuffix(got, ".pdf")
	if len(base) > 120 {
		t.Fatalf("basis nama file %d karakter, melewati batas 120: %q", len(base), got)
	}
}

func TestDefaultTemplate(t *testing.T) {
	tpl := Default()
	if len(tpl.Judul) == 0 || len(tpl.Pernyataan) == 0 {
		t.Fatal("template default harus punya judul dan pernyataan")
	}
	if !strings.Contains(tpl.LampiranIntro, "{nama}") {
		t.Errorf("LampiranIntro harus memuat token {nama}: %q", tpl.LampiranIntro)
	}
	for i, h := range tpl.LampiranHeader {
		if strings.TrimSpace(h) == "" {
			t.Errorf("header lampiran kolom %d kosong", i)
		}
	}
}
