// Command encryptkey encrypts an exchange API secret with a password and
// writes the result to a JSON file the bot can load at startup, so the raw
// secret never has to sit in config.toml or the environment.
//
// Usage:
//
//	encryptkey -out secret.enc.json
//
// The secret and password are read from stdin so they do not appear in shell
// history or process listings.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Mikesteam1234/crypfinder/internal/crypto"
)

func main() {
	outPath := flag.String("out", "secret.enc.json", "path to write the encrypted secret file")
	flag.Parse()

	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "API secret: ")
	secret, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading secret: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading password: %v\n", err)
		os.Exit(1)
	}

	secret = strings.TrimRight(secret, "\r\n")
	password = strings.TrimRight(password, "\r\n")

	data, err := crypto.EncryptSecret(secret, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypting secret: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, data, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", *outPath, err)
		os.Exit(1)
	}

	// Round-trip to make sure the file decrypts before anyone relies on it.
	if _, err := crypto.DecryptSecret(data, password); err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("encrypted secret written to %s\n", *outPath)
}
