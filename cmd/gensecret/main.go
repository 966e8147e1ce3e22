// Generates a random secret suitable for the SECRET_KEY setting.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultSecretBytesLen = 32

func main() {
	length := pflag.IntP("length", "n", defaultSecretBytesLen, "Secret length in bytes")
	pflag.Parse()

	if *length <= 0 {
		fmt.Println("length must be positive")
		os.Exit(1)
	}

	b := make([]byte, *length)
	if _, err := rand.Read(b); err != nil {
		fmt.Printf("error while generating secret key: %v", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
