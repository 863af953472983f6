package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

const (
	nonceBytes      = 16
	credentialBytes = 32
)

const challengeDisclaimer = "Signing this message proves you own this wallet. It does not send a transaction or cost any fees."

// buildChallenge renders the line-structured text a wallet signs.
func buildChallenge(appName, wallet string, issuedAt time.Time, nonce string) string {
	var b strings.Builder
	b.WriteString(appName)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Wallet: %s\n", wallet)
	fmt.Fprintf(&b, "Issued At: %s\n", issuedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Nonce: %s\n", nonce)
	b.WriteString("\n")
	b.WriteString(challengeDisclaimer)
	return b.String()
}

// randomToken returns n random bytes encoded as base58.
func randomToken(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base58.Encode(buf), nil
}

var defaultRandom io.Reader = rand.Reader
