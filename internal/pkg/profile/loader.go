package profile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported profile format")

// Load reads a profile file, the format is picked by extension (.toml, .yaml, .yml).
func Load(path string) (Profile, error) {
	var parse func([]byte) (Profile, error)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parse = ParseTOML
	case ".yaml", ".yml":
		parse = ParseYAML
	default:
		return Profile{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}

	fd, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return Profile{}, fmt.Errorf("opening profile file failed: %w", err)
	}
	defer fd.Close()

	data, err := io.ReadAll(fd)
	if err != nil {
		return Profile{}, fmt.Errorf("reading file data failed: %w", err)
	}

	p, err := parse(data)
	if err != nil {
		return Profile{}, err
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}
