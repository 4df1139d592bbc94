// Package crypto provides request signing and credential management for the
// venue REST clients.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// SignHex computes HMAC-SHA256 of message using key and returns the result as
// a lowercase hex string. Binance signs query strings this way.
func SignHex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignBase64 computes HMAC-SHA256 of message using key and returns the result
// base64 standard-encoded. OKX signs "timestamp+method+path+body" this way.
func SignBase64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignBase64Key is like SignBase64 but first base64-decodes the key. Coinbase
// Exchange distributes API secrets base64-encoded; if decoding fails the raw
// bytes are used so the caller gets an obviously-wrong signature rather than
// a panic.
func SignBase64Key(encodedKey, message string) string {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		key = []byte(encodedKey)
	}
	return SignBase64(key, message)
}
