package auth

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const gravatarBase = "https://www.gravatar.com/avatar/"

// GravatarURL returns the default avatar for an email address.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return gravatarBase + hex.EncodeToString(sum[:]) + "?d=identicon"
}
