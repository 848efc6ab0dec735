package secret

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"golang.org/x/term"
)

// KMSDecrypter is the subset of the AWS KMS client used to unwrap a wallet
// secret that was encrypted with a KMS key.
type KMSDecrypter interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// FromKMS decrypts a base64 encoded KMS ciphertext blob into a Secret.
func FromKMS(ctx context.Context, client KMSDecrypter, ciphertextB64 string) (Secret, error) {
	if client == nil {
		return Secret{}, fmt.Errorf("kms client is required")
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertextB64))
	if err != nil {
		return Secret{}, fmt.Errorf("failed to decode kms ciphertext: %w", err)
	}
	if len(blob) == 0 {
		return Secret{}, fmt.Errorf("kms ciphertext is empty")
	}

	out, err := client.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return Secret{}, fmt.Errorf("failed to decrypt wallet secret with kms: %w", err)
	}
	if len(out.Plaintext) == 0 {
		return Secret{}, fmt.Errorf("kms returned an empty wallet secret")
	}
	s := New(out.Plaintext)
	clear(out.Plaintext)
	return s, nil
}

// Prompt reads a secret from the controlling terminal without echo. The
// prompt is written to stderr.
func Prompt(label string) (Secret, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return Secret{}, fmt.Errorf("stdin is not a terminal: pass the wallet secret with a flag or environment variable")
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(fd)
	if err != nil {
		return Secret{}, fmt.Errorf("failed to read wallet secret: %w", err)
	}
	if len(raw) == 0 {
		return Secret{}, fmt.Errorf("wallet secret cannot be empty")
	}
	s := New(raw)
	clear(raw)
	return s, nil
}
