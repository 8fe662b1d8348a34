package domain

// Penerima adalah satu baris valid dari Excel utama: identitas penerima
// insentif plus daftar proposal yang didanai atas namanya.
//
// Kunci unik: NIP. Setelah ekstraksi struct ini tidak berubah lagi,
// kecuali Email yang boleh diisi belakangan dari file mapping (NIP -> Email).
type Penerima struct {
	NIP      string
	Nama     string
	Fakultas string
	Rekening string
	// Bank opsional di Excel; default "-" supaya surat tetap rapi.
	Bank string
	// Email opsional; kosong berarti penerima nantinya SKIP di tahap kirim.
	Email string

	// Proposal mengikuti urutan suffix kolom sumber (NoProp1 sebelum NoProp2).
	// Urutan ini ikut tercetak di lampiran, jadi harus stabil.
	Proposal []Proposal
}

// Proposal adalah satu entri lampiran milik tepat satu Penerima.
// Sebuah slot hanya terisi kalau sel NoProp<i>-nya tidak kosong;
// kolom lain boleh kosong.
type Proposal struct {
	NoProp string
	Judul  string
	Skema  string
	// Dana disimpan apa adanya dari sel; format rupiah dilakukan saat render.
	Dana string
}
