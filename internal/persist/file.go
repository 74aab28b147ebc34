package persist

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

const checksumPrefix = "# blake2b-256: "

// ErrChecksum means a snapshot file was modified or truncated.
var ErrChecksum = errors.New("snapshot checksum mismatch")

// FileBackend keeps each snapshot in its own YAML file. The first line
// carries a blake2b-256 checksum of the rest of the file.
type FileBackend struct{}

func (FileBackend) Save(_ context.Context, path string, s *Snapshot) error {
	body, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	sum := blake2b.Sum256(body)

	var buf bytes.Buffer
	buf.Grow(len(body) + 80)
	buf.WriteString(checksumPrefix)
	buf.WriteString(hex.EncodeToString(sum[:]))
	buf.WriteByte('\n')
	buf.Write(body)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	// replace atomically
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (FileBackend) Load(_ context.Context, path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return decodeFile(raw)
}

func (FileBackend) Close() error { return nil }

func decodeFile(raw []byte) (*Snapshot, error) {
	header, body, ok := bytes.Cut(raw, []byte{'\n'})
	if !ok || !bytes.HasPrefix(header, []byte(checksumPrefix)) {
		return nil, fmt.Errorf("%w: missing checksum header", ErrChecksum)
	}
	want, err := hex.DecodeString(string(bytes.TrimPrefix(header, []byte(checksumPrefix))))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	got := blake2b.Sum256(body)
	if !bytes.Equal(want, got[:]) {
		return nil, ErrChecksum
	}
	s := &Snapshot{}
	if err := yaml.Unmarshal(body, s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return s, nil
}
