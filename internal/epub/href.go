package epub

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeHref resolves the URL reference href against the archive
// directory base and returns the reference in canonical escaped form, without
// a leading slash. Any #fragment is dropped; "?" has no special meaning.
// A normalized reference normalizes to itself against an empty base.
//
// This is the only place hrefs are joined: container -> OPF, OPF -> manifest
// items, manifest -> NCX, NCX -> content documents and cover images all go
// through it. Use archivePath for the name stored in the archive.
func NormalizeHref(base, href string) string {
	ref, _ := splitFragment(strings.TrimSpace(href))
	if ref == "" {
		return ""
	}
	ref = unescape(ref)

	full := ref
	if !strings.HasPrefix(ref, "/") {
		dir := strings.Trim(base, "/")
		if dir == "." {
			dir = ""
		}
		full = "/" + dir + "/" + ref
	}

	clean := strings.TrimPrefix(path.Clean(full), "/")
	return (&url.URL{Path: clean}).EscapedPath()
}

// archivePath resolves href against the archive directory base and returns
// the decoded archive entry name.
func archivePath(base, href string) string {
	return unescape(NormalizeHref(base, href))
}

// unescape decodes percent escapes. A malformed escape leaves s literal.
func unescape(s string) string {
	if p, err := url.PathUnescape(s); err == nil {
		return p
	}
	return s
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (path, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	path = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return path, fragment
}

// dirOf returns the archive directory of p, "" for top-level entries.
func dirOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// baseName returns the last path element of an archive path.
func baseName(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}
