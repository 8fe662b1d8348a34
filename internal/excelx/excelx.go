// Package excelx membaca skema Excel lebar (kolom proposal bersuffix angka)
// menjadi record Penerima yang ternormalisasi, plus membaca file mapping
// NIP -> Email untuk rekonsiliasi alamat.
package excelx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Akhyarrrrr/Automasi-SPTJM/internal/domain"
)

// Kolom identitas wajib; satu saja hilang dari header = SchemaError
// (fatal untuk seluruh run, beda dengan skip per-baris).
var requiredCols = []string{"NIP", "Nama", "Fakultas", "Norek"}

// Family kolom proposal: NoProp<i> menentukan slot; kolom lain boleh kosong.
var noPropRE = regexp.MustCompile(`^NoProp([0-9]+)$`)

// Validasi email sederhana, sama dengan yang dipakai untuk kolom Email utama.
var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Table adalah isi satu sheet: header + baris data, semua sel sebagai string.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// SchemaError berarti struktur tabel tidak memenuhi kontrak minimum.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "kolom wajib tidak ada di header: " + strings.Join(e.Missing, ", ")
}

// SheetNames mengembalikan daftar sheet di workbook.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("gagal membuka Excel %q: %w", path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadSheet membaca satu sheet (sheet kosong = sheet pertama) menjadi Table.
// Nama kolom di-trim di sini, sekali, supaya downstream tidak perlu lagi.
func ReadSheet(path, sheet string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("gagal membuka Excel %q: %w", path, err)
	}
	defer f.Close()

	if strings.TrimSpace(sheet) == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return Table{}, fmt.Errorf("workbook %q tidak punya sheet", path)
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("gagal membaca sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return Table{Sheet: sheet}, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return Table{Sheet: sheet, Header: header, Rows: rows[1:]}, nil
}

// cell aman terhadap baris pendek: excelize memangkas sel kosong di ekor baris.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// colIndex mencari kolom dengan nama persis; -1 kalau tidak ada.
func colIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// colIndexAny mengembalikan kolom pertama yang cocok dari beberapa kandidat nama.
func colIndexAny(header []string, names ...string) int {
	for _, n := range names {
		if i := colIndex(header, n); i >= 0 {
			return i
		}
	}
	return -1
}

// DetectMaxN memindai header sekali dan mengembalikan suffix NoProp terbesar.
// 0 berarti sheet tidak punya family kolom proposal sama sekali.
func DetectMaxN(header []string) int {
	maxN := 0
	for _, h := range header {
		m := noPropRE.FindStringSubmatch(h)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxN {
			maxN = n
		}
	}
	return maxN
}

// NormalizeEmail men-trim lalu memvalidasi secara sintaktis; tidak valid = kosong.
func NormalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !emailRE.MatchString(s) {
		return ""
	}
	return s
}

// ExtractPenerima menormalkan Table menjadi record Penerima berurutan.
//
// Kontrak:
//   - header tanpa kolom wajib => *SchemaError (fatal, sebelum baris mana pun diproses)
//   - baris dengan identitas tidak lengkap => skip + dihitung (bukan error)
//   - slot proposal terisi hanya kalau NoProp<i> tidak kosong; slot tidak harus
//     berurutan/lengkap per baris
//   - record + skipped selalu = jumlah baris data
func ExtractPenerima(t Table) ([]domain.Penerima, int, error) {
	var missing []string
	for _, c := range requiredCols {
		if colIndex(t.Header, c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, 0, &SchemaError{Missing: missing}
	}

	idxNIP := colIndex(t.Header, "NIP")
	idxNama := colIndex(t.Header, "Nama")
	idxFak := colIndex(t.Header, "Fakultas")
	idxRek := colIndex(t.Header, "Norek")
	idxBank := colIndexAny(t.Header, "Nama Bank", "nama_bank")
	idxEmail := colIndexAny(t.Header, "Email", "email")

	maxN := DetectMaxN(t.Header)

	// Index kolom per-slot dihitung sekali, bukan per baris.
	type slotIdx struct{ noProp, judul, skema, dana int }
	slots := make([]slotIdx, 0, maxN)
	for i := 1; i <= maxN; i++ {
		slots = append(slots, slotIdx{
			noProp: colIndex(t.Header, fmt.Sprintf("NoProp%d", i)),
			judul:  colIndex(t.Header, fmt.Sprintf("Judul%d", i)),
			skema:  colIndex(t.Header, fmt.Sprintf("Skema%d", i)),
			dana:   colIndex(t.Header, fmt.Sprintf("Jumlah_dana%d", i)),
		})
	}

	people := make([]domain.Penerima, 0, len(t.Rows))
	skipped := 0

	for _, row := range t.Rows {
		nip := cell(row, idxNIP)
		nama := cell(row, idxNama)
		fakultas := cell(row, idxFak)
		rekening := cell(row, idxRek)

		if nip == "" || nama == "" || fakultas == "" || rekening == "" {
			skipped++
			continue
		}

		bank := ""
		if idxBank >= 0 {
			bank = cell(row, idxBank)
		}
		if bank == "" {
			bank = "-"
		}

		email := ""
		if idxEmail >= 0 {
			email = NormalizeEmail(cell(row, idxEmail))
		}

		var proposal []domain.Proposal
		for _, s := range slots {
			noProp := cell(row, s.noProp)
			if noProp == "" {
				// Slot kosong = absen, bukan entri berisi nilai kosong.
				continue
			}
			proposal = append(proposal, domain.Proposal{
				NoProp: noProp,
				Judul:  cell(row, s.judul),
				Skema:  cell(row, s.skema),
				Dana:   cell(row, s.dana),
			})
		}

		people = append(people, domain.Penerima{
			NIP:      nip,
			Nama:     nama,
			Fakultas: fakultas,
			Rekening: rekening,
			Bank:     bank,
			Email:    email,
			Proposal: proposal,
		})
	}

	return people, skipped, nil
}

// BuildEmailMap membaca tabel mapping dua kolom (NIP, Email; nama kolom
// case-insensitive) menjadi map NIP -> alamat.
//
// NIP duplikat: yang terakhir menang (dupes dihitung untuk dilaporkan,
// bukan divalidasi). Baris dengan NIP kosong atau email tidak valid dilewati.
func BuildEmailMap(t Table) (map[string]string, int, error) {
	idxNIP, idxEmail := -1, -1
	for i, h := range t.Header {
		switch strings.ToLower(h) {
		case "nip":
			if idxNIP < 0 {
				idxNIP = i
			}
		case "email":
			if idxEmail < 0 {
				idxEmail = i
			}
		}
	}
	if idxNIP < 0 || idxEmail < 0 {
		return nil, 0, &SchemaError{Missing: []string{"NIP", "Email"}}
	}

	out := make(map[string]string, len(t.Rows))
	dupes := 0
	for _, row := range t.Rows {
		nip := cell(row, idxNIP)
		em := NormalizeEmail(cell(row, idxEmail))
		if nip == "" || em == "" {
			continue
		}
		if _, ok := out[nip]; ok {
			dupes++
		}
		out[nip] = em
	}
	return out, dupes, nil
}

// ApplyEmailMap mengisi Email record yang masih kosong berdasarkan NIP.
// Record yang tidak ada di mapping dan memang tanpa email dibiarkan
// (nanti muncul sebagai SKIP di report kirim). Mengembalikan jumlah terisi.
func ApplyEmailMap(people []domain.Penerima, emailMap map[string]string) int {
	filled := 0
	for i := range people {
		if people[i].Email != "" {
			continue
		}
		if em, ok := emailMap[people[i].NIP]; ok {
			people[i].Email = em
			filled++
		}
	}
	return filled
}
