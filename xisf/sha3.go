package xisf

import "golang.org/x/crypto/sha3"

func sha3Sum256(data []byte) [32]byte { return sha3.Sum256(data) }
func sha3Sum512(data []byte) [64]byte { return sha3.Sum512(data) }
