package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"hash"
	"sort"

	"budget-integrity-ledger/pkg/apperror"

	"golang.org/x/crypto/blake2b"
)

// Versioned digest algorithm names. A stored seal keeps the name it was
// generated under; validation never compares across names.
const (
	AlgorithmSHA256     = "sha256-jcs-v1"
	AlgorithmHMACSHA256 = "hmac-sha256-jcs-v1"
	AlgorithmBLAKE2b256 = "blake2b256-jcs-v1"

	DefaultAlgorithm = AlgorithmSHA256
)

// digester produces fixed-size digests for one algorithm.
type digester struct {
	name    string
	newHash func() hash.Hash
}

// newDigester resolves an algorithm name. The HMAC variant needs a key.
func newDigester(name string, key []byte) (*digester, error) {
	switch name {
	case AlgorithmSHA256:
		return &digester{name: name, newHash: sha256.New}, nil
	case AlgorithmHMACSHA256:
		if len(key) == 0 {
			return nil, apperror.Validation("algorithm " + name + " requires an integrity key")
		}
		k := append([]byte(nil), key...)
		return &digester{name: name, newHash: func() hash.Hash { return hmac.New(sha256.New, k) }}, nil
	case AlgorithmBLAKE2b256:
		return &digester{name: name, newHash: func() hash.Hash {
			h, err := blake2b.New256(nil)
			if err != nil {
				// Only a key longer than 64 bytes makes New256 fail.
				panic(fmt.Sprintf("blake2b: %v", err))
			}
			return h
		}}, nil
	default:
		return nil, apperror.ErrUnknownAlgorithm(name)
	}
}

// SupportedAlgorithms lists the names newDigester accepts.
func SupportedAlgorithms() []string {
	return []string{AlgorithmSHA256, AlgorithmHMACSHA256, AlgorithmBLAKE2b256}
}

func (d *digester) sum(parts ...[]byte) []byte {
	h := d.newHash()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// merkleRoot folds leaf digests into one root. Leaves are sorted first so the
// root does not depend on the order rows were read in; an odd node at any
// level is paired with itself.
func (d *digester) merkleRoot(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		return d.sum()
	}
	level := make([][]byte, len(leaves))
	copy(level, leaves)
	sort.Slice(level, func(i, j int) bool { return bytes.Compare(level[i], level[j]) < 0 })

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, d.sum(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}
