package core

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxExtLen bounds the extension kept on a storage id.
const maxExtLen = 10

// storageIDPattern matches exactly what Namer.Generate produces.
var storageIDPattern = regexp.MustCompile(
	`^[0-9]{1,20}-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]{1,10})?$`,
)

// Namer generates storage ids of the form <unix-nanos>-<uuid v4>[.ext].
// It is safe for concurrent use; uniqueness comes from the random uuid,
// not from any shared counter.
type Namer struct {
	now   func() time.Time
	token func() string
}

// NewNamer returns a Namer backed by the wall clock and crypto/rand uuids.
func NewNamer() *Namer {
	return &Namer{now: time.Now, token: uuid.NewString}
}

// Generate returns a fresh storage id that keeps the sanitized extension of
// originalName. The client-supplied name never contributes anything else.
func (n *Namer) Generate(originalName string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(n.now().UnixNano(), 10))
	b.WriteByte('-')
	b.WriteString(n.token())
	b.WriteString(SafeExtension(originalName))
	return b.String()
}

// SafeExtension returns ".ext" lower-cased and limited to [a-z0-9], or ""
// when nothing usable remains.
func SafeExtension(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	ext := strings.TrimPrefix(path.Ext(path.Base(name)), ".")

	var b strings.Builder
	for _, r := range strings.ToLower(ext) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == maxExtLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}

// ValidStorageID reports whether id has the exact shape Generate produces.
// Path parameters are checked with it before they reach the blob store.
func ValidStorageID(id string) bool {
	return storageIDPattern.MatchString(id)
}

// displayName reduces a client file name to its last path element for
// metadata; it is never used to build a path.
func displayName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
