package driver

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shrek82/godbc/core"
)

// Prefix is the namespace every connection URL starts with:
//
//	godbc:<scheme>://[user:pass@][host[:port]][/database][?opt=val]
//
// File-based and in-memory variants (sqlite) omit host:port and carry the
// path after the scheme instead.
const Prefix = "godbc:"

// URL is a parsed connection URL.
type URL struct {
	Scheme   string
	Username string
	Password string
	Host     string
	Port     int
	Database string
	// Path is the unstripped URL path, for file-based backends where the
	// database is a filesystem location.
	Path    string
	Options url.Values

	// Raw is the original string, prefix included.
	Raw string
}

// HasScheme reports whether raw is a godbc URL with the given scheme.
// Cheap enough for AcceptsURL to call on every dispatch.
func HasScheme(raw, scheme string) bool {
	rest, ok := strings.CutPrefix(raw, Prefix)
	if !ok {
		return false
	}
	return strings.HasPrefix(rest, scheme+":")
}

// ParseURL parses a godbc connection URL. The scheme-specific part follows
// RFC 3986, so standard user-info, host:port, path, and query syntax apply.
func ParseURL(raw string) (*URL, error) {
	rest, ok := strings.CutPrefix(raw, Prefix)
	if !ok {
		return nil, core.NewError(core.CodeNoSuitableDriver, "connection URL %q lacks the %q prefix", raw, Prefix)
	}
	u, err := url.Parse(rest)
	if err != nil {
		return nil, core.WrapError(core.CodeNoSuitableDriver, err, "malformed connection URL %q", raw)
	}
	out := &URL{
		Scheme:   u.Scheme,
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
		Path:     u.Path,
		Options:  u.Query(),
		Raw:      raw,
	}
	if u.User != nil {
		out.Username = u.User.Username()
		out.Password, _ = u.User.Password()
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, core.WrapError(core.CodeNoSuitableDriver, err, "bad port in %q", raw)
		}
		out.Port = port
	}
	// sqlite-style opaque form: godbc:sqlite::memory: or godbc:sqlite:/path/db
	if u.Opaque != "" {
		out.Database = u.Opaque
		out.Path = u.Opaque
	}
	return out, nil
}

// HostPort renders host:port, falling back to defPort when the URL carries
// no explicit port.
func (u *URL) HostPort(defPort int) string {
	port := u.Port
	if port == 0 {
		port = defPort
	}
	return u.Host + ":" + strconv.Itoa(port)
}

// Option returns a query option value, or def when absent.
func (u *URL) Option(key, def string) string {
	if v := u.Options.Get(key); v != "" {
		return v
	}
	return def
}
