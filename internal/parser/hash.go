package parser

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// HashGenerator fingerprints normalized chart content.
type HashGenerator struct {
	encoding encoding.Encoding
	newHash  func() hash.Hash
}

// NewHashGenerator defaults to UTF-8 and MD5 for nil arguments.
func NewHashGenerator(enc encoding.Encoding, newHash func() hash.Hash) *HashGenerator {
	if nil == enc {
		enc = unicode.UTF8
	}
	if nil == newHash {
		newHash = md5.New
	}
	return &HashGenerator{encoding: enc, newHash: newHash}
}

// GetHash digests the lines joined by "\n" and returns it base64 encoded.
// The digest is order sensitive.
func (g *HashGenerator) GetHash(content []string) (string, error) {
	data, err := g.encoding.NewEncoder().Bytes([]byte(strings.Join(content, "\n")))
	if nil != err {
		return "", fmt.Errorf("unable to encode chart for hashing: %w", err)
	}
	h := g.newHash()
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// HashAlgorithm maps a digest name to its constructor.
func HashAlgorithm(name string) (func() hash.Hash, error) {
	switch strings.ToLower(name) {
	case "", "md5":
		return md5.New, nil
	case "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	}
	return nil, fmt.Errorf("unknown hash algorithm %q", name)
}
