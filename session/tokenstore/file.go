package tokenstore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// TokenFileName is the well-known name of the token slot on disk.
const TokenFileName = "session.token"

// File persists the token as a single file with owner-only permissions.
type File struct {
	path string
}

// NewFile creates a file-backed store rooted at dir. The directory is created
// on the first Save, not here, so a read-only process can still Load.
func NewFile(dir string) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("[tokenstore.NewFile] dir is required")
	}
	return &File{path: filepath.Join(dir, TokenFileName)}, nil
}

func (f *File) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", errors.Wrap(err, "[File.Load] read token file")
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (f *File) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "[File.Save] create token dir")
	}
	if err := os.WriteFile(f.path, []byte(token), 0o600); err != nil {
		return errors.Wrap(err, "[File.Save] write token file")
	}
	return nil
}

func (f *File) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[File.Clear] remove token file")
	}
	return nil
}
