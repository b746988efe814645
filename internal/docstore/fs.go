package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// Filesystem implements Store on the local filesystem. Documents live at
// <root>/<hh>/<digest> where hh is the first hex byte of the digest, with a
// JSON sidecar (<digest>.meta) carrying content type and timestamps. Writes
// stream through a temp file and rename into place, so a crashed Put never
// leaves a partial document at its final path.
type Filesystem struct {
	root string
}

// NewFilesystem returns a filesystem-backed document store rooted at path,
// creating the directory if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./docdata"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	return &Filesystem{root: root}, nil
}

func (s *Filesystem) Driver() Driver { return DriverFilesystem }

type fsMeta struct {
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	StoredAt    time.Time `json:"stored_at"`
}

func (s *Filesystem) pathFor(digest domain.Digest) (dataPath, metaPath string) {
	hex := digest.String()
	dataPath = filepath.Join(s.root, hex[:2], hex)
	metaPath = dataPath + ".meta"
	return
}

func (s *Filesystem) Put(_ context.Context, r io.Reader, contentType string) (Info, error) {
	// Digest is unknown until the content is consumed, so stream into a temp
	// file while hashing, then move to the content-derived path.
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return Info{}, err
	}
	var digest domain.Digest
	copy(digest[:], h.Sum(nil))

	dataPath, metaPath := s.pathFor(digest)
	if meta, err := readFSMeta(metaPath); err == nil {
		return Info{Digest: digest, Size: meta.Size, ContentType: meta.ContentType, StoredAt: meta.StoredAt}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o750); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Info{}, err
	}
	now := time.Now().UTC()
	meta := fsMeta{ContentType: contentType, Size: size, StoredAt: now}
	if err := writeFSMeta(metaPath, meta); err != nil {
		return Info{}, err
	}
	return Info{Digest: digest, Size: size, ContentType: contentType, StoredAt: now}, nil
}

func (s *Filesystem) Get(_ context.Context, digest domain.Digest) (Info, io.ReadCloser, error) {
	dataPath, metaPath := s.pathFor(digest)
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, ErrNotFound
	}
	if err != nil {
		return Info{}, nil, err
	}
	meta, err := readFSMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return Info{}, nil, err
	}
	return Info{Digest: digest, Size: meta.Size, ContentType: meta.ContentType, StoredAt: meta.StoredAt}, file, nil
}

func (s *Filesystem) Stat(_ context.Context, digest domain.Digest) (Info, error) {
	_, metaPath := s.pathFor(digest)
	meta, err := readFSMeta(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, ErrNotFound
	}
	if err != nil {
		return Info{}, err
	}
	return Info{Digest: digest, Size: meta.Size, ContentType: meta.ContentType, StoredAt: meta.StoredAt}, nil
}

func (s *Filesystem) Delete(_ context.Context, digest domain.Digest) (bool, error) {
	dataPath, metaPath := s.pathFor(digest)
	if _, err := os.Stat(dataPath); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := os.Remove(dataPath); err != nil {
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

func (s *Filesystem) List(_ context.Context) ([]Info, error) {
	var infos []Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".meta") {
			return nil
		}
		digest, perr := domain.ParseDigest(strings.TrimSuffix(filepath.Base(path), ".meta"))
		if perr != nil {
			return fmt.Errorf("stray metadata file %s: %w", path, perr)
		}
		meta, merr := readFSMeta(path)
		if merr != nil {
			return merr
		}
		infos = append(infos, Info{Digest: digest, Size: meta.Size, ContentType: meta.ContentType, StoredAt: meta.StoredAt})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Digest.String() < infos[j].Digest.String() })
	return infos, nil
}

func writeFSMeta(path string, meta fsMeta) error {
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func readFSMeta(path string) (fsMeta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return fsMeta{}, err
	}
	var meta fsMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return fsMeta{}, err
	}
	return meta, nil
}
