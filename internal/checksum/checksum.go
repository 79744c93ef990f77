package checksum

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
	MD5    Algorithm = "md5"
)

// All lists the sidecar algorithms in upload order.
var All = []Algorithm{SHA1, SHA256, SHA512, MD5}

func (a Algorithm) Extension() string {
	return "." + string(a)
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	case SHA512:
		return sha512.New()
	case MD5:
		return md5.New()
	default:
		return nil
	}
}

// Sums holds hex digests keyed by algorithm.
type Sums map[Algorithm]string

// Compute reads r once and returns every digest in All plus the byte count.
func Compute(r io.Reader) (Sums, int64, error) {
	hashes := make(map[Algorithm]hash.Hash, len(All))
	writers := make([]io.Writer, 0, len(All))
	for _, algo := range All {
		h := algo.newHash()
		hashes[algo] = h
		writers = append(writers, h)
	}
	n, err := io.Copy(io.MultiWriter(writers...), r)
	if err != nil {
		return nil, 0, fmt.Errorf("compute checksums: %w", err)
	}
	sums := make(Sums, len(All))
	for algo, h := range hashes {
		sums[algo] = hex.EncodeToString(h.Sum(nil))
	}
	return sums, n, nil
}

func ComputeBytes(content []byte) Sums {
	sums, _, _ := Compute(bytes.NewReader(content))
	return sums
}

// Sidecar is one checksum file published next to an artifact.
type Sidecar struct {
	Algorithm Algorithm
	Key       string
	Body      []byte
}

// Sidecars returns the sidecar objects for key, restricted to algos (All when empty).
func Sidecars(key string, sums Sums, algos ...Algorithm) []Sidecar {
	if len(algos) == 0 {
		algos = All
	}
	out := make([]Sidecar, 0, len(algos))
	for _, algo := range algos {
		digest, ok := sums[algo]
		if !ok {
			continue
		}
		out = append(out, Sidecar{Algorithm: algo, Key: key + algo.Extension(), Body: []byte(digest)})
	}
	return out
}

// Verify checks a sidecar body against content. Only the first whitespace
// separated token is considered, so "<digest>  file.jar" bodies are accepted.
func Verify(content []byte, sidecar []byte, algo Algorithm) error {
	fields := strings.Fields(string(sidecar))
	if len(fields) == 0 {
		return fmt.Errorf("%s checksum is empty", algo)
	}
	h := algo.newHash()
	if h == nil {
		return fmt.Errorf("unsupported checksum algorithm %q", algo)
	}
	h.Write(content)
	want := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(fields[0], want) {
		return fmt.Errorf("%s checksum mismatch: remote %s, computed %s", algo, fields[0], want)
	}
	return nil
}
