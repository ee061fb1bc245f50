package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ChatExt is the suffix of every chat file.
const ChatExt = ".jsonl"

var ErrNotFound = errors.New("not found")

// NotFoundError names what could not be resolved.
type NotFoundError struct {
	Kind string // "directory", "character" or "file"
	Name string
	Dir  string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "directory" {
		return fmt.Sprintf("chats directory %q does not exist", e.Name)
	}
	return fmt.Sprintf("%s %q does not exist in %q", e.Kind, e.Name, e.Dir)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type FileInfo struct {
	Path      string
	Character string // directory name under the chats root
	Name      string // file name without extension
	Mtime     int64
	Size      int64
}

// Key identifies a chat as "character/name".
func (fi FileInfo) Key() string {
	return fi.Character + "/" + fi.Name
}

// Lookup resolves one chat file under root. The file name may omit the
// .jsonl suffix.
func Lookup(root, character, file string) (FileInfo, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, &NotFoundError{Kind: "directory", Name: root}
		}
		return FileInfo{}, err
	}

	var charDir string
	for _, e := range entries {
		if e.IsDir() && e.Name() == character {
			charDir = filepath.Join(root, e.Name())
			break
		}
	}
	if charDir == "" {
		return FileInfo{}, &NotFoundError{Kind: "character", Name: character, Dir: root}
	}

	if !strings.HasSuffix(file, ChatExt) {
		file += ChatExt
	}
	path := filepath.Join(charDir, file)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || filepath.Base(path) != file {
		return FileInfo{}, &NotFoundError{Kind: "file", Name: file, Dir: charDir}
	}

	return FileInfo{
		Path:      path,
		Character: character,
		Name:      strings.TrimSuffix(file, ChatExt),
		Mtime:     info.ModTime().Unix(),
		Size:      info.Size(),
	}, nil
}

// Characters lists the character directories under root, sorted.
func Characters(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ScanRoot lists every chat file one level below each character directory.
// A missing root yields no files and no error.
func ScanRoot(root string) ([]FileInfo, error) {
	if root == "" {
		return nil, nil
	}
	characters, err := Characters(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []FileInfo
	for _, character := range characters {
		dir := filepath.Join(root, character)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // skip unreadable dirs
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ChatExt {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, FileInfo{
				Path:      filepath.Join(dir, e.Name()),
				Character: character,
				Name:      strings.TrimSuffix(e.Name(), ChatExt),
				Mtime:     info.ModTime().Unix(),
				Size:      info.Size(),
			})
		}
	}
	return files, nil
}
