// Package jsonfile persists a whole collection as a single JSON document.
// Every save rewrites the entire file; there is no partial write and no
// cross-process locking.
package jsonfile

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
)

// Load decodes the file at path into v, which must be a non-nil pointer. A
// missing, empty or undecodable file leaves v untouched and is not an error:
// callers treat it as an empty collection. Decoding is all or nothing.
func Load(path string, v interface{}) {
	b, err := ioutil.ReadFile(path)
	if err != nil || len(b) == 0 {
		return
	}

	dst := reflect.ValueOf(v)
	if dst.Kind() != reflect.Ptr || dst.IsNil() {
		return
	}
	tmp := reflect.New(dst.Elem().Type())
	if err := json.Unmarshal(b, tmp.Interface()); err != nil {
		return
	}
	dst.Elem().Set(tmp.Elem())
}

// Save writes v to path through a temporary file in the same directory, so
// a failed write never truncates the previous contents.
func Save(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := ioutil.TempFile(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
