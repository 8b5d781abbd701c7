package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

type TokenID [32]byte

const (
	tokenSecretSize   = 32
	submissionRawSize = 64
)

func NewTokenID() (TokenID, error) {
	var id TokenID
	_, err := rand.Read(id[:])
	return id, err
}

func (id TokenID) Bytes() []byte {
	return id[:]
}

func (id TokenID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func ParseTokenID(tokenID string) (TokenID, error) {
	var id TokenID

	raw, err := base64.RawURLEncoding.DecodeString(tokenID)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid token id size")
	}

	copy(id[:], raw)
	return id, nil
}

func NewTokenSecret() ([tokenSecretSize]byte, error) {
	var secret [tokenSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func ComputeMAC(key []byte, secret [tokenSecretSize]byte) [32]byte {
	return MACBytes(key, secret[:])
}

func MACBytes(key, secret []byte) [32]byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(secret)

	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

func EncodeSubmission(tokenID string, secret [tokenSecretSize]byte) (string, error) {
	id, err := ParseTokenID(tokenID)
	if err != nil {
		return "", err
	}

	var raw [submissionRawSize]byte
	copy(raw[:len(id)], id[:])
	copy(raw[len(id):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

func DecodeSubmission(token string) (string, [tokenSecretSize]byte, error) {
	var secret [tokenSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, err
	}
	if len(raw) != submissionRawSize {
		return "", secret, errors.New("invalid submission size")
	}

	var id TokenID
	copy(id[:], raw[:len(id)])
	copy(secret[:], raw[len(id):])

	return id.String(), secret, nil
}

func DeriveKey(master []byte, info string) ([32]byte, error) {
	var key [32]byte

	r := hkdf.New(sha256.New, master, nil, []byte(info))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, err
	}
	return key, nil
}
