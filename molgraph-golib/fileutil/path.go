package fileutil

import (
	"net/url"
	"path"
)

// Join joins path elements the way path.Join does, but keeps a leading URI
// scheme and host intact, so it works on s3:// and http:// paths as well as
// local ones.
func Join(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	u, err := url.Parse(parts[0])
	if err != nil || u.Scheme == "" {
		return path.Join(parts...)
	}
	rest := append([]string{u.Path}, parts[1:]...)
	u.Path = path.Join(rest...)
	return u.String()
}

// Dir is a scheme-aware path.Dir.
func Dir(p string) string {
	u, err := url.Parse(p)
	if err != nil || u.Scheme == "" {
		return path.Dir(p)
	}
	u.Path = path.Dir(u.Path)
	return u.String()
}
