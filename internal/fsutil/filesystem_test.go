package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fsys := OSFileSystem{}

	if !fsys.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if fsys.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_CreateRenameOpen(t *testing.T) {
	fsys := OSFileSystem{}
	dir := t.TempDir()
	tmp := filepath.Join(dir, "out.partial")
	final := filepath.Join(dir, "out.bin")

	w, err := fsys.Create(tmp)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := fsys.Rename(tmp, final); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if fsys.Exists(tmp) {
		t.Error("expected temporary file to be gone after rename")
	}

	f, err := fsys.Open(final)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if _, err := f.Seek(6, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	rest, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(rest) != "6789" {
		t.Errorf("expected %q after seek, got %q", "6789", rest)
	}
}

func TestMemoryFileSystem_CreateVisibleAfterClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/created.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("test content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := mfs.ReadFile("/created.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty file before close, got %q", data)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data, err = mfs.ReadFile("/created.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "test content" {
		t.Errorf("expected %q, got %q", "test content", data)
	}
}

func TestMemoryFileSystem_Seek(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/data.bin", []byte("abcdefgh"))

	f, err := mfs.Open("/data.bin")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	tests := []struct {
		offset int64
		whence int
		want   string
	}{
		{2, io.SeekStart, "cd"},
		{1, io.SeekCurrent, "fg"},
		{-1, io.SeekEnd, "h"},
	}
	for _, tt := range tests {
		if _, err := f.Seek(tt.offset, tt.whence); err != nil {
			t.Fatalf("Seek(%d, %d) failed: %v", tt.offset, tt.whence, err)
		}
		buf := make([]byte, len(tt.want))
		if _, err := io.ReadFull(f, buf); err != nil {
			t.Fatalf("ReadFull failed: %v", err)
		}
		if string(buf) != tt.want {
			t.Errorf("Seek(%d, %d): got %q, want %q", tt.offset, tt.whence, buf, tt.want)
		}
	}

	if _, err := f.Seek(-100, io.SeekStart); err == nil {
		t.Error("expected error seeking to a negative position")
	}
}

func TestMemoryFileSystem_StatAndRename(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/a.bin", make([]byte, 42))

	info, err := mfs.Stat("/a.bin")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 42 {
		t.Errorf("expected size 42, got %d", info.Size())
	}

	if err := mfs.Rename("/a.bin", "/b.bin"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if mfs.Exists("/a.bin") || !mfs.Exists("/b.bin") {
		t.Error("rename did not move the file")
	}

	err = mfs.Rename("/missing", "/x")
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected LinkError wrapping ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_OpenMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.Open("/nope")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if err := mfs.Remove("/nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist from Remove, got %v", err)
	}
}

func TestMemoryFileSystem_MkdirAllAndRemove(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("/plots/run1", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if !mfs.Exists("/plots") || !mfs.Exists("/plots/run1") {
		t.Error("expected parent and child directories to exist")
	}

	mfs.WriteFile("/plots/run1/a.png", []byte("x"))
	if err := mfs.Remove("/plots/run1"); err == nil {
		t.Error("expected error removing a non-empty directory")
	}
	if err := mfs.Remove("/plots/run1/a.png"); err != nil {
		t.Fatalf("Remove file failed: %v", err)
	}
	if err := mfs.Remove("/plots/run1"); err != nil {
		t.Fatalf("Remove dir failed: %v", err)
	}
}
