package server

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// TextFiles holds cached text file contents served at connection
// lifecycle points. The watcher goroutine replaces them, so reads go
// through the accessors.
type TextFiles struct {
	mu      sync.RWMutex
	dir     string
	connect string // connect.txt, greeting before the name prompt
	motd    string // motd.txt, shown on entering play
	quit    string // quit.txt, farewell on the quit command
}

// trackedFiles are the files loaded from the text directory.
var trackedFiles = []string{"connect.txt", "motd.txt", "quit.txt"}

func (tf *TextFiles) GetConnect() string { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.connect }
func (tf *TextFiles) GetMotd() string    { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.motd }
func (tf *TextFiles) GetQuit() string    { tf.mu.RLock(); defer tf.mu.RUnlock(); return tf.quit }

// loadFile reads a single text file, returning empty string on any error.
func loadFile(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return string(data)
}

// LoadTextFiles reads text files from dir and returns a populated TextFiles.
// Missing or empty files result in empty strings (no error).
func LoadTextFiles(dir string) *TextFiles {
	tf := &TextFiles{dir: dir}
	tf.Reload()
	return tf
}

// Reload rereads every tracked file and returns how many are non-empty.
func (tf *TextFiles) Reload() int {
	connect := loadFile(tf.dir, "connect.txt")
	motd := loadFile(tf.dir, "motd.txt")
	quit := loadFile(tf.dir, "quit.txt")

	tf.mu.Lock()
	tf.connect, tf.motd, tf.quit = connect, motd, quit
	tf.mu.Unlock()

	count := 0
	for _, v := range []string{connect, motd, quit} {
		if v != "" {
			count++
		}
	}
	log.Printf("Loaded %d text files from %s", count, tf.dir)
	return count
}

// Watch reloads the files whenever one of them changes on disk, until ctx
// is done. It returns once the watcher is running.
func (tf *TextFiles) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(tf.dir); err != nil {
		watcher.Close()
		return err
	}

	tracked := make(map[string]bool, len(trackedFiles))
	for _, name := range trackedFiles {
		tracked[name] = true
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if !tracked[filepath.Base(event.Name)] {
					continue
				}
				log.Printf("Text file changed: %s", filepath.Base(event.Name))
				tf.Reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Text file watcher error: %v", err)
			}
		}
	}()

	log.Printf("Watching text directory for changes: %s", tf.dir)
	return nil
}
