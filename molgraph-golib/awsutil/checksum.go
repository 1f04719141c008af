package awsutil

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Cached objects carry a sidecar file holding the local md5 and the remote
// etag, so that a cache hit can be validated against S3 without rehashing the
// remote side. The sidecar has exactly two lines: local checksum, then etag.
const checksumExtension = ".s3cache-checksum"

func hexEncode(buf []byte) []byte {
	dst := make([]byte, hex.EncodedLen(len(buf)))
	hex.Encode(dst, buf)
	return dst
}

// checksumLocal hashes a cached file with md5, the only hash S3 etags
// support. When a sidecar is present and its first line matches the computed
// hash, the recorded etag is returned instead so the caller can compare
// directly against the remote object; a stale sidecar is an error.
func checksumLocal(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("error copying contents of %s into hash: %v", path, err)
	}
	checksum := hexEncode(h.Sum(nil))

	sidecar := path + checksumExtension
	buf, err := ioutil.ReadFile(sidecar)
	if os.IsNotExist(err) {
		return checksum, nil
	} else if err != nil {
		return nil, err
	}

	lines := bytes.Split(buf, []byte("\n"))
	if len(lines) != 2 {
		return nil, fmt.Errorf("expected %s to contain two lines but found %d lines", sidecar, len(lines))
	}
	local, etag := lines[0], lines[1]
	if !bytes.Equal(local, checksum) {
		return nil, fmt.Errorf("first line of %s was %s but file checksum was %s", sidecar, string(checksum), string(local))
	}
	return etag, nil
}

// storeChecksumFor writes the sidecar for a freshly cached file.
func storeChecksumFor(path string, local, etag []byte) error {
	sidecar := path + checksumExtension
	contents := bytes.Join([][]byte{local, etag}, []byte("\n"))
	if err := ioutil.WriteFile(sidecar, contents, 0777); err != nil {
		return fmt.Errorf("error writing checksum to %s: %v", sidecar, err)
	}
	return nil
}

// checksumFromHead recovers the original object md5 from a HEAD response.
// s3cmd multipart uploads stash it in the S3cmd-Attrs metadata field; for
// everything else the etag is the md5.
func checksumFromHead(head *s3.HeadObjectOutput) []byte {
	if attrs, ok := head.Metadata["S3cmd-Attrs"]; ok {
		for _, pair := range strings.Split(*attrs, "/") {
			if strings.HasPrefix(pair, "md5:") {
				return []byte(strings.TrimPrefix(pair, "md5:"))
			}
		}
	}
	return bytes.Trim([]byte(*head.ETag), "\"")
}

func headS3URL(s3url *url.URL) (*s3.HeadObjectOutput, error) {
	region, err := objectRegion(s3url)
	if err != nil {
		return nil, fmt.Errorf("unable to determine region: %s", err)
	}

	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	s3client := s3.New(sess, aws.NewConfig().WithRegion(region))

	key := strings.TrimPrefix(s3url.Path, "/")
	return s3client.HeadObject(&s3.HeadObjectInput{
		Bucket: &s3url.Host,
		Key:    &key,
	})
}
