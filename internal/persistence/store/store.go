// Package store persists whole profiles, one file per profile id. A file is
// a single zstd stream holding a JSON header line followed by the JSON body,
// so files stay inspectable with standard tooling. Writes go through a temp
// file and an atomic rename; a crash mid-write never corrupts the last good
// snapshot.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"jetgo.dev/internal/game/profile"
)

const fileSuffix = ".json.zst"

type Header struct {
	Version   int    `json:"version"`
	ProfileID string `json:"profile_id"`
	SavedAt   int64  `json:"saved_at"`
}

type Store struct {
	dir string
}

func New(dataDir string) *Store {
	return &Store{dir: filepath.Join(dataDir, "profiles")}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+fileSuffix)
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("store: invalid profile id %q", id)
	}
	return nil
}

func (s *Store) Write(st *profile.State) error {
	if err := validID(st.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, st.ID+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := writeTo(tmp, st); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(st.ID))
}

func writeTo(f *os.File, st *profile.State) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(Header{Version: 1, ProfileID: st.ID, SavedAt: time.Now().Unix()})
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(st); err != nil {
		enc.Close()
		return fmt.Errorf("store: encode profile %s: %w", st.ID, err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func (s *Store) Read(id string) (*profile.State, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	headerLine, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("store: profile %s: header: %w", id, err)
	}
	var h Header
	if err := json.Unmarshal(headerLine, &h); err != nil {
		return nil, fmt.Errorf("store: profile %s: header: %w", id, err)
	}
	if h.ProfileID != id {
		return nil, fmt.Errorf("store: profile %s: header names %s", id, h.ProfileID)
	}

	var st profile.State
	if err := json.NewDecoder(br).Decode(&st); err != nil {
		return nil, fmt.Errorf("store: decode profile %s: %w", id, err)
	}
	return &st, nil
}

// List returns the ids of all stored profiles.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileSuffix))
	}
	return ids, nil
}
