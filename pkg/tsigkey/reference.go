package tsigkey

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Kind is the form of a key reference.
type Kind int

const (
	KindInline Kind = iota
	KindFile
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindFile:
		return "file"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// RemoteLocation names a key file on another host.
type RemoteLocation struct {
	User string
	Host string
	Port int // 0 means the SSH default
	Path string
}

func (l RemoteLocation) String() string {
	u := url.URL{Scheme: "ssh", Host: l.Host, Path: l.Path}
	if l.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", l.Host, l.Port)
	}
	if l.User != "" {
		u.User = url.User(l.User)
	}
	return u.String()
}

// Reference is a parsed key reference. Inline references carry the key
// itself; file and remote references carry where to find it.
type Reference struct {
	Kind Kind

	// Inline keys.
	Key Material

	// File and remote keys.
	File    string
	Remote  RemoteLocation
	KeyName string
}

// String describes the reference without revealing the secret.
func (r Reference) String() string {
	switch r.Kind {
	case KindInline:
		return "inline:" + r.Key.String()
	case KindFile:
		return r.File + ":" + r.KeyName
	case KindRemote:
		return r.Remote.String() + ":" + r.KeyName
	default:
		return "unknown"
	}
}

// FileExistsFunc reports whether path names an existing regular file.
type FileExistsFunc func(path string) bool

// ParseReference parses ref. A leading "ssh://" selects a remote key file.
// Otherwise, when the first colon-separated segment is an existing file,
// the reference is "file:keyname"; when it is not, the reference is an
// inline "algorithm:name:secret" or "name:secret".
func ParseReference(ref string, exists FileExistsFunc) (Reference, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Reference{}, fmt.Errorf("%w: empty", ErrInvalidReference)
	}

	if strings.HasPrefix(ref, "ssh://") {
		return parseRemote(ref)
	}

	parts := strings.Split(ref, ":")
	if exists != nil && exists(parts[0]) {
		keyName := strings.Join(parts[1:], ":")
		if strings.TrimSpace(keyName) == "" {
			return Reference{}, fmt.Errorf("%w: missing key name after file %s", ErrInvalidReference, parts[0])
		}
		return Reference{Kind: KindFile, File: parts[0], KeyName: keyName}, nil
	}

	var key Material
	switch len(parts) {
	case 3:
		key = newMaterial(parts[1], parts[0], parts[2])
	case 2:
		key = newMaterial(parts[0], DefaultAlgorithm, parts[1])
	default:
		// Never echo the reference, it may contain a secret.
		return Reference{}, fmt.Errorf("%w: expected algorithm:name:secret, name:secret or file:keyname", ErrInvalidReference)
	}
	if key.Name == "" || key.Secret == "" {
		return Reference{}, fmt.Errorf("%w: inline key needs a name and a secret", ErrInvalidReference)
	}
	return Reference{Kind: KindInline, Key: key}, nil
}

// parseRemote parses ssh://[user@]host[:port]/path:keyname.
func parseRemote(ref string) (Reference, error) {
	i := strings.LastIndex(ref, ":")
	if i <= len("ssh:") {
		return Reference{}, fmt.Errorf("%w: remote reference %s needs a :keyname suffix", ErrInvalidReference, ref)
	}
	location, keyName := ref[:i], strings.TrimSpace(ref[i+1:])
	if keyName == "" || strings.Contains(keyName, "/") {
		return Reference{}, fmt.Errorf("%w: remote reference %s needs a :keyname suffix", ErrInvalidReference, ref)
	}

	u, err := url.Parse(location)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if u.Hostname() == "" {
		return Reference{}, fmt.Errorf("%w: remote reference %s has no host", ErrInvalidReference, ref)
	}
	if u.Path == "" || u.Path == "/" {
		return Reference{}, fmt.Errorf("%w: remote reference %s has no file path", ErrInvalidReference, ref)
	}

	loc := RemoteLocation{Host: u.Hostname(), Path: u.Path}
	if u.User != nil {
		loc.User = u.User.Username()
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Reference{}, fmt.Errorf("%w: invalid port %q", ErrInvalidReference, p)
		}
		loc.Port = port
	}

	return Reference{Kind: KindRemote, Remote: loc, KeyName: keyName}, nil
}
