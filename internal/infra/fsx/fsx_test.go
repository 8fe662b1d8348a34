package fsx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicReplace(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicReplace(dir, "laporan.csv", []byte("v1")); err != nil {
		t.Fatalf("tulis pertama gagal: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "laporan.csv"))
	if err != nil {
		t.Fatalf("baca balik gagal: %v", err)
	}
	if string(b) != "v1" {
		t.Fatalf("isi = %q, harusnya v1", b)
	}

	// Timpa: run kedua mengganti report lama tanpa sisa file sementara.
	if err := WriteFileAtomicReplace(dir, "laporan.csv", []byte("v2 lebih panjang")); err != nil {
		t.Fatalf("tulis kedua gagal: %v", err)
	}
	b, _ = os.ReadFile(filepath.Join(dir, "laporan.csv"))
	if string(b) != "v2 lebih panjang" {
		t.Fatalf("isi setelah timpa = %q", b)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("direktori harus bersih dari file sementara, isi: %d entri", len(entries))
	}
}

func TestWriteFileAtomicReplaceBuatDirektori(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "pdf")
	if err := WriteFileAtomicReplace(dir, "x.bin", []byte{0x1}); err != nil {
		t.Fatalf("harus membuat direktori perantara: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.bin")); err != nil {
		t.Fatalf("file tidak ada: %v", err)
	}
}
