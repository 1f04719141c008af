package awsutil

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/molgraph/molgraph/molgraph-golib/envutil"
)

var (
	// Path to the S3 cache.
	cacheroot = envutil.GetenvDefault("MOLGRAPH_S3CACHE", "/var/molgraph/s3cache")
)

// IsS3URI returns true if the path is an s3 uri.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// SetCacheRoot allows for direct configuration of the cacheroot
func SetCacheRoot(path string) {
	cacheroot = path
}

// ValidateURI checks whether the given uri points to S3.
func ValidateURI(uri string) (*url.URL, error) {
	s3url, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if s3url.Scheme != "s3" {
		return nil, fmt.Errorf("url is not a s3 path: %s", s3url.String())
	}
	return s3url, nil
}

// NewS3Reader returns an io.ReadCloser that will read the contents
// of the file pointed to by the uri. URI will be of the form
// s3://bucket-name/path/to/file
func NewS3Reader(uri string) (io.ReadCloser, error) {
	s3url, err := ValidateURI(uri)
	if err != nil {
		return nil, err
	}
	return objectReader(s3url)
}

func objectReader(uri *url.URL) (io.ReadCloser, error) {
	region, err := objectRegion(uri)
	if err != nil {
		return nil, fmt.Errorf("unable to determine region: %s", err)
	}

	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}

	// Re-create client for bucket's region, and get the object
	s3client := s3.New(sess, aws.NewConfig().WithRegion(region))

	key := strings.TrimPrefix(uri.Path, "/")
	getObjInput := &s3.GetObjectInput{
		Bucket: &uri.Host,
		Key:    &key,
	}

	req, getObjOutput := s3client.GetObjectRequest(getObjInput)
	err = req.Send()
	return getObjOutput.Body, err
}

func objectRegion(uri *url.URL) (string, error) {
	sess, err := session.NewSession()
	if err != nil {
		return "", err
	}

	s3client := s3.New(sess, aws.NewConfig().WithRegion("us-west-1"))

	// Discover the region that this bucket is located in
	bucketLocInput := &s3.GetBucketLocationInput{
		Bucket: &uri.Host,
	}
	bucketLocOutput, err := s3client.GetBucketLocation(bucketLocInput)
	if err != nil {
		return "", err
	}

	if bucketLocOutput.LocationConstraint == nil {
		return "us-east-1", nil
	}
	return *bucketLocOutput.LocationConstraint, nil
}

// CachePath returns the location of where the S3 file will be saved on disk.
func CachePath(s3url *url.URL) string {
	return CachePathAt(cacheroot, s3url)
}

// CachePathAt returns the location where the s3 file will be saved on disk,
// rooted at the specified cacheroot.
func CachePathAt(cacheroot string, s3url *url.URL) string {
	return filepath.Join(cacheroot, s3url.Host, s3url.Path)
}

// CachedReaderOptions contains options for a cached s3 reader
type CachedReaderOptions struct {
	CacheRoot string
	Logger    io.Writer
}

// NewCachedS3Reader returns an io.ReadCloser that will read the
// contents of the file pointed to by the uri. If the file exists in
// the local cache then its MD5 hash will be computed and compared to
// that of the remote S3 object. If they match then the file will be
// read from the cache; if not then the file will be read from S3. Note
// that in the latter case, the object will _not_ be downloaded in its
// entirety before it can be read locally; rather, it will be copied
// to the local cache as it is received.
func NewCachedS3Reader(uri string) (io.ReadCloser, error) {
	return NewCachedS3ReaderWithOptions(CachedReaderOptions{
		CacheRoot: cacheroot,
		Logger:    os.Stderr,
	}, uri)
}

func logf(w io.Writer, fmtstr string, args ...interface{}) {
	if w == nil {
		return
	}
	w.Write([]byte(fmt.Sprintf(fmtstr, args...)))
}

// NewCachedS3ReaderWithOptions returns a cached s3 reader using the specified options.
func NewCachedS3ReaderWithOptions(opts CachedReaderOptions, uri string) (io.ReadCloser, error) {
	s3url, err := ValidateURI(uri)
	if err != nil {
		return nil, err
	}

	if opts.CacheRoot == "" {
		opts.CacheRoot = cacheroot
	}

	cachepath := CachePathAt(opts.CacheRoot, s3url)

	// Get the header/etag for the remote object
	var etag []byte
	head, err := headS3URL(s3url)
	if err != nil {
		logf(opts.Logger, "failed to compute remote checksum: %v, will try local cache\n", err)
	} else {
		etag = checksumFromHead(head)
	}

	// Attempt to load it from the cache
	r, err := tryCache(etag, cachepath)
	if err == nil {
		logf(opts.Logger, "cache hit on %s\n", uri)
		logf(opts.Logger, "loading from %s\n", cachepath)
		return r, nil
	}

	// Fall back to loading from S3 while copying into the local cache
	logf(opts.Logger, "cache miss on %s: %v\n", uri, err)
	r, err = NewS3Reader(uri)
	if err != nil {
		return nil, err
	}

	cacherootTmp := filepath.Join(opts.CacheRoot, "tmp")
	err = os.MkdirAll(cacherootTmp, os.ModePerm)
	if err != nil {
		return nil, err
	}
	return newCacheFillReader(r, cachepath, cacherootTmp, etag)
}
