package pubsub

import (
	"strings"

	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
)

// IsPattern reports whether key is a glob pattern rather than a channel.
func IsPattern(key string) bool {
	return strings.Contains(key, "*")
}

// ValidateKey checks a single subscription key. Channels must not contain
// '*' and patterns must.
func ValidateKey(key string, pattern bool) error {
	if key == "" {
		return errors.NewKeyError(errors.ReasonInvalidKey, key, "key must not be empty")
	}
	if pattern && !IsPattern(key) {
		return errors.NewKeyError(errors.ReasonInvalidKey, key, "pattern must contain '*'")
	}
	if !pattern && IsPattern(key) {
		return errors.NewKeyError(errors.ReasonInvalidKey, key, "channel must not contain '*'")
	}
	return nil
}

// ValidateKeys checks a batch of keys: non-empty, each key valid, no repeats.
func ValidateKeys(keys []string, pattern bool) error {
	switch len(keys) {
	case 0:
		return errors.NewKeyError(errors.ReasonEmptyKeySet, keys, "at least one key is required")
	case 1:
		return ValidateKey(keys[0], pattern)
	}

	for _, k := range keys {
		if err := ValidateKey(k, pattern); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			return errors.NewKeyError(errors.ReasonDuplicateKey, k, "key appears more than once")
		}
		seen[k] = struct{}{}
	}
	return nil
}
