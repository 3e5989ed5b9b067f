package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadTextFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "connect.txt"), []byte("Hello!\r\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "motd.txt"), []byte("News.\r\n"), 0o644)

	tf := LoadTextFiles(dir)
	if tf.GetConnect() != "Hello!\r\n" || tf.GetMotd() != "News.\r\n" || tf.GetQuit() != "" {
		t.Errorf("loaded %q %q %q", tf.GetConnect(), tf.GetMotd(), tf.GetQuit())
	}

	os.WriteFile(filepath.Join(dir, "quit.txt"), []byte("Bye.\r\n"), 0o644)
	os.Remove(filepath.Join(dir, "motd.txt"))
	if n := tf.Reload(); n != 2 {
		t.Errorf("Reload = %d, want 2", n)
	}
	if tf.GetMotd() != "" || tf.GetQuit() != "Bye.\r\n" {
		t.Errorf("after reload motd=%q quit=%q", tf.GetMotd(), tf.GetQuit())
	}
}

func TestWatchReloadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "motd.txt")
	os.WriteFile(path, []byte("old\r\n"), 0o644)

	tf := LoadTextFiles(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := tf.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	os.WriteFile(path, []byte("new\r\n"), 0o644)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if tf.GetMotd() == "new\r\n" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("motd = %q after change on disk", tf.GetMotd())
}

func TestWatchMissingDir(t *testing.T) {
	tf := LoadTextFiles(filepath.Join(t.TempDir(), "nope"))
	if err := tf.Watch(context.Background()); err == nil {
		t.Error("watching a missing directory should fail")
	}
}
