package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FSStore keeps blobs on the local filesystem under root/{bucket}/{path} and
// mints HMAC-signed download URLs served by the /files handler.
type FSStore struct {
	root       string
	baseURL    string
	signingKey []byte
	now        func() time.Time
}

func NewFSStore(root, baseURL string, signingKey []byte) *FSStore {
	return &FSStore{
		root:       root,
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: signingKey,
		now:        time.Now,
	}
}

func (s *FSStore) objectPath(bucket, path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("empty object path")
	}
	return filepath.Join(s.root, bucket, clean), nil
}

func (s *FSStore) Put(ctx context.Context, bucket, path string, r io.Reader) (string, error) {
	dst, err := s.objectPath(bucket, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func (s *FSStore) Get(ctx context.Context, bucket, path string) (io.ReadCloser, error) {
	src, err := s.objectPath(bucket, path)
	if err != nil {
		return nil, err
	}
	return os.Open(src)
}

// SignedURL mints a time-limited download link. The signature covers the
// bucket, object path and expiry instant.
func (s *FSStore) SignedURL(bucket, path string, ttl time.Duration) (string, error) {
	if _, err := s.objectPath(bucket, path); err != nil {
		return "", err
	}
	exp := s.now().Add(ttl).Unix()
	sig := s.sign(bucket, path, exp)
	return fmt.Sprintf("%s/files/%s/%s?exp=%d&sig=%s",
		s.baseURL, bucket, escapePath(path), exp, sig), nil
}

func (s *FSStore) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/files/%s/%s", s.baseURL, bucket, escapePath(path))
}

func (s *FSStore) Remove(ctx context.Context, bucket string, paths []string) error {
	var firstErr error
	for _, p := range paths {
		dst, err := s.objectPath(bucket, p)
		if err == nil {
			err = os.Remove(dst)
		}
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Verify checks a signature produced by SignedURL and that it has not expired.
func (s *FSStore) Verify(bucket, path, expStr, sig string) bool {
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return false
	}
	if s.now().Unix() > exp {
		return false
	}
	want := s.sign(bucket, path, exp)
	return hmac.Equal([]byte(want), []byte(sig))
}

func (s *FSStore) sign(bucket, path string, exp int64) string {
	mac := hmac.New(sha256.New, s.signingKey)
	fmt.Fprintf(mac, "%s/%s:%d", bucket, path, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
