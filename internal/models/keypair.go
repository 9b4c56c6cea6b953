package models

// KeyPair is an X25519 private/public key pair produced by the proxy core.
// Immutable after generation; re-running initialization replaces it.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}
