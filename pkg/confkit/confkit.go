package confkit

import (
	"os"
	"path/filepath"
)

// Section points at a config fragment kept in its own file. The main config
// carries only the file name; Hydrate fills Value from it.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads the section file through loader and stores the parsed value.
// Relative file names resolve against base. A section without a file stays
// empty, that is not an error.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	path := ResolvePath(base, s.File)
	value, err := loader(path)
	if err != nil {
		return err
	}
	s.File, s.Value = path, value
	return nil
}

// ResolvePath expands environment variables in file and, when the result is
// relative, anchors it at base.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}
