package awsutil

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
)

// cacheFillReader streams an S3 object to the caller while spooling the bytes
// into a temp file. The temp file is promoted into the cache only after the
// whole stream was read to EOF with no errors; an early Close or a read error
// discards it, so a partially downloaded object never shadows the remote one.
type cacheFillReader struct {
	dest string
	file *os.File
	tee  io.Reader
	sum  hash.Hash
	src  io.Closer
	// remote checksum recorded in the cache sidecar on promotion; nil skips
	// the sidecar
	etag []byte
}

func newCacheFillReader(src io.ReadCloser, dest, tmpDir string, etag []byte) (*cacheFillReader, error) {
	f, err := ioutil.TempFile(tmpDir, "")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary file: %v", err)
	}
	sum := md5.New()
	return &cacheFillReader{
		dest: dest,
		file: f,
		tee:  io.TeeReader(io.TeeReader(src, sum), f),
		sum:  sum,
		src:  src,
		etag: etag,
	}, nil
}

func (r *cacheFillReader) Read(p []byte) (int, error) {
	// a Read can return n > 0 along with EOF
	n, err := r.tee.Read(p)
	switch err {
	case nil:
	case io.EOF:
		if promoteErr := r.promote(); promoteErr != nil {
			log.Println(promoteErr)
		}
	default:
		r.discard()
	}
	return n, err
}

// Close discards any unfinished spool and closes the source stream. Closing
// after EOF is a no-op since promotion already cleared the temp file.
func (r *cacheFillReader) Close() error {
	r.discard()
	return r.src.Close()
}

func (r *cacheFillReader) promote() error {
	if r.file == nil {
		return nil
	}
	tmpPath := r.file.Name()
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.dest), 0777); err != nil {
		return fmt.Errorf("error creating dir within cache: %v", err)
	}
	if err := os.Rename(tmpPath, r.dest); err != nil {
		return fmt.Errorf("error moving temp file into cache: %v", err)
	}

	if r.etag != nil {
		if err := storeChecksumFor(r.dest, hexEncode(r.sum.Sum(nil)), r.etag); err != nil {
			return err
		}
	}

	r.file = nil
	return nil
}

func (r *cacheFillReader) discard() {
	if r.file == nil {
		return
	}
	tmpPath := r.file.Name()
	if err := r.file.Close(); err != nil {
		log.Println("error closing temporary file:", err)
	}
	if err := os.Remove(tmpPath); err != nil {
		log.Printf("error deleting %s: %v\n", tmpPath, err)
	}
	r.file = nil
}

// tryCache opens the cached copy of an object when it exists and matches the
// remote checksum. A nil checksum skips the comparison.
func tryCache(checksum []byte, cachepath string) (io.ReadCloser, error) {
	if checksum != nil {
		local, err := checksumLocal(cachepath)
		if err != nil {
			return nil, fmt.Errorf("failed to compute local checksum: %v", err)
		}
		if !bytes.Equal(local, checksum) {
			return nil, errors.New("file exists in cache but is out of date")
		}
	}
	return os.Open(cachepath)
}
