package storage

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/transitscheduler/pkg/util"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	KIND_NODES     = "route_nodes"
	KIND_EDGES     = "route_edges"
	KIND_ROUTES    = "routes"
	KIND_SCHEDULES = "schedules"
)

// envelope is the document stored in every snapshot file. Pair ties files that must be loaded together.
type envelope struct {
	Kind    string             `msgpack:"kind"`
	Pair    string             `msgpack:"pair,omitempty"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

type edgeRecord struct {
	From string `msgpack:"from"`
	To   string `msgpack:"to"`
}

type routeRecord struct {
	ID          int    `msgpack:"id"`
	Description string `msgpack:"description"`
}

// writeSnapshot encodes payload into a bzip2 compressed msgpack file. The file is written next to
// filename and renamed into place so a crash never leaves a half written snapshot.
func writeSnapshot(filename, kind, pair string, payload any) error {
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternalServerError, "encode %s payload", kind)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	tmp := filename + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := encodeEnvelope(f, envelope{Kind: kind, Pair: pair, Payload: raw}); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filename)
}

func encodeEnvelope(f *os.File, env envelope) error {
	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(bz)
	if err := msgpack.NewEncoder(w).Encode(env); err != nil {
		bz.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

// readSnapshot decodes the file written by writeSnapshot into out and returns its pair token.
// A missing file is ErrNotFound, anything unreadable is ErrSerializationMismatch.
func readSnapshot(filename, kind string, out any) (string, error) {
	f, err := os.Open(filename)
	if errors.Is(err, os.ErrNotExist) {
		return "", util.WrapErrorf(err, util.ErrNotFound, "snapshot %s not found", filename)
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return "", util.WrapErrorf(err, util.ErrSerializationMismatch, "open %s", filename)
	}
	defer bz.Close()

	var env envelope
	if err := msgpack.NewDecoder(bufio.NewReader(bz)).Decode(&env); err != nil {
		return "", util.WrapErrorf(err, util.ErrSerializationMismatch, "decode %s", filename)
	}
	if env.Kind != kind {
		return "", util.NewErrorf(util.ErrSerializationMismatch, "%s holds %q, expected %q", filename, env.Kind, kind)
	}
	if err := msgpack.Unmarshal(env.Payload, out); err != nil {
		return "", util.WrapErrorf(err, util.ErrSerializationMismatch, "decode %s payload", filename)
	}
	return env.Pair, nil
}

func fileExists(filename string) (bool, error) {
	_, err := os.Stat(filename)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
