// Package main provides a one-shot utility for token signing key
// generation.
//
// It emits the asymmetric keypair the exercise service uses to sign client
// tokens.
package main

import (
	"os"

	"github.com/mkarsten/ironlog/internal/platform/config"
	"github.com/mkarsten/ironlog/internal/tools/tokenkey"
)

func main() {
	if err := tokenkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate token key: %v", err)
	}
}
