package fileutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/molgraph/molgraph/molgraph-golib/awsutil"
	"github.com/molgraph/molgraph/molgraph-golib/errors"
)

var localOnly bool

// SetLocalOnly disallows fileutil operations from accessing either S3 or the local S3 cache.
// Explicitly requested local files still open the files on disk.
func SetLocalOnly() {
	localOnly = true
}

func newReader(path string, s3ReaderMaker func(uri string) (io.ReadCloser, error)) (io.ReadCloser, error) {
	if strings.HasPrefix(path, "s3://") {
		if localOnly {
			return nil, errors.New("fileutil cannot load from S3 in local-only mode")
		}
		return s3ReaderMaker(path)
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("error getting %s: %s", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			io.Copy(ioutil.Discard, resp.Body)
			return nil, errors.Errorf("error getting %s: status code %d", path, resp.StatusCode)
		}
		return resp.Body, nil
	}

	return os.Open(path)
}

// NewReader opens a local or remote path for reading. If the path looks like
// "s3://bucket/path/to/object" then this will read an object from S3. Otherwise, this
// will read a path from the local filesystem or over http(s).
func NewReader(path string) (io.ReadCloser, error) {
	return newReader(path, awsutil.NewS3Reader)
}

// NewCachedReader opens a local or remote path for reading. If the path looks like
// "s3://bucket/path/to/object" then this will read an object from S3. Otherwise, this
// will read a path from the local filesystem. Caching only applies to S3 paths.
func NewCachedReader(path string) (io.ReadCloser, error) {
	return newReader(path, awsutil.NewCachedS3Reader)
}

// DownloadedFile returns the path of a file downloaded to disk. If the input path is local, this will return that file path
// (after checking the path exists). Otherwise, if the path looks like an S3 path it will attempt to download that
// object and return the local path on disk. Repeated calls will return the same local path.
func DownloadedFile(path string) (string, error) {
	reader, readErr := NewCachedReader(path)
	if readErr != nil {
		return "", readErr
	}

	_, copyErr := io.Copy(ioutil.Discard, reader)
	if copyErr != nil {
		return "", copyErr
	}

	closeErr := reader.Close()
	if closeErr != nil {
		return "", closeErr
	}

	s3url, parseErr := awsutil.ValidateURI(path)
	if parseErr != nil {
		return path, nil
	}
	return awsutil.CachePath(s3url), nil
}

// ReadFile reads the contents of a local or remote path.
func ReadFile(path string) ([]byte, error) {
	r, err := NewCachedReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// NewWriter opens a local path for writing, creating parent directories as needed.
func NewWriter(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
