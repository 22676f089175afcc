package docstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/vmihailenco/msgpack/v5"

	"kbase/internal/domain"
	"kbase/internal/storage"
)

// persistLocked rewrites the chunk and metadata artifacts, then refreshes or
// removes the index cache. Each artifact is replaced atomically. The index
// cache is advisory, so failures there are only logged.
func (s *Store) persistLocked() error {
	ctx := context.Background()
	if err := writeArtifact(ctx, s.files, ChunksFile, s.chunks); err != nil {
		return fmt.Errorf("%w: save %s: %w", domain.ErrStorage, ChunksFile, err)
	}
	if err := writeArtifact(ctx, s.files, MetadataFile, s.metadata); err != nil {
		return fmt.Errorf("%w: save %s: %w", domain.ErrStorage, MetadataFile, err)
	}
	if snap, ok := s.index.Snapshot(); ok {
		if err := writeArtifact(ctx, s.files, IndexFile, snap); err != nil {
			s.log.Warn("failed to save index cache", "file", IndexFile, "error", err)
		}
	} else if err := s.files.Delete(ctx, IndexFile); err != nil {
		s.log.Warn("failed to remove stale index cache", "file", IndexFile, "error", err)
	}
	return nil
}

func writeArtifact(ctx context.Context, files storage.FileStore, name string, v any) error {
	w, err := files.Write(ctx, name)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		w.Abort()
		return err
	}
	if err := bw.Flush(); err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}

// readArtifact decodes the named artifact into v. It reports false without
// an error when the artifact does not exist.
func readArtifact(ctx context.Context, files storage.FileStore, name string, v any) (bool, error) {
	r, err := files.Read(ctx, name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer r.Close()
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return false, err
	}
	return true, nil
}
