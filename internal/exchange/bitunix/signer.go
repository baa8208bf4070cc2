package bitunix

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the request signature: sha256(sha256(nonce+ts+apiKey+query+body)+secret).
func Sign(secret, nonce, apiKey, ts, query, body string) string {
	h1 := sha256.Sum256([]byte(nonce + ts + apiKey + query + body))
	h2 := sha256.Sum256([]byte(hex.EncodeToString(h1[:]) + secret))
	return hex.EncodeToString(h2[:])
}

// signQuery concatenates query parameters as key+value, sorted by key.
func signQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	return b.String()
}
