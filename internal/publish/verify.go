package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"artipub/internal/checksum"
	"artipub/internal/storage"
)

// ObjectReader is the read half of ObjectStore.
type ObjectReader interface {
	GetObject(ctx context.Context, objectKey string) ([]byte, error)
}

// Check is the outcome of verifying one remote object against its sidecars.
type Check struct {
	Key        string
	Verified   []checksum.Algorithm
	Missing    []checksum.Algorithm
	Mismatches []string
}

// OK reports whether at least one sidecar matched and none disagreed.
func (c Check) OK() bool {
	return len(c.Verified) > 0 && len(c.Mismatches) == 0
}

func (c Check) String() string {
	if c.OK() {
		return fmt.Sprintf("OK   %s (%s)", c.Key, joinAlgorithms(c.Verified))
	}
	if len(c.Mismatches) == 0 {
		return fmt.Sprintf("FAIL %s: no checksum files found", c.Key)
	}
	return fmt.Sprintf("FAIL %s: %s", c.Key, strings.Join(c.Mismatches, "; "))
}

// VerifyObject downloads key and every sidecar next to it. Missing sidecars
// are recorded, not treated as errors; a missing object is.
func VerifyObject(ctx context.Context, store ObjectReader, key string) (Check, error) {
	content, err := store.GetObject(ctx, key)
	if err != nil {
		return Check{}, err
	}

	check := Check{Key: key}
	for _, algo := range checksum.All {
		sidecar, err := store.GetObject(ctx, key+algo.Extension())
		switch {
		case errors.Is(err, storage.ErrObjectNotFound):
			check.Missing = append(check.Missing, algo)
			continue
		case err != nil:
			return check, err
		}
		if err := checksum.Verify(content, sidecar, algo); err != nil {
			check.Mismatches = append(check.Mismatches, err.Error())
			continue
		}
		check.Verified = append(check.Verified, algo)
	}
	return check, nil
}

func joinAlgorithms(algos []checksum.Algorithm) string {
	names := make([]string, 0, len(algos))
	for _, a := range algos {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}
