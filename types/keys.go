package types

import (
	"fmt"
	"io"

	"github.com/filecoin-project/go-address"
	crypto "github.com/filecoin-project/go-crypto"
	"github.com/minio/blake2b-simd"
)

// KeyInfo holds a client or section keypair. The public key is derived from
// the private key on demand; the account address is the secp256k1 key
// address.
type KeyInfo struct {
	Type       string
	PrivateKey []byte
}

func GenerateKey() (*KeyInfo, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	return &KeyInfo{
		Type:       KTSecp256k1,
		PrivateKey: priv,
	}, nil
}

// GenerateKeyFromSeed derives a keypair deterministically from the given
// randomness source. Used by the stress harness for reproducible runs.
func GenerateKeyFromSeed(seed io.Reader) (*KeyInfo, error) {
	priv, err := crypto.GenerateKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}

	return &KeyInfo{
		Type:       KTSecp256k1,
		PrivateKey: priv,
	}, nil
}

func (ki *KeyInfo) Public() []byte {
	return crypto.PublicKey(ki.PrivateKey)
}

func (ki *KeyInfo) Address() (address.Address, error) {
	if ki.Type != KTSecp256k1 {
		return address.Undef, fmt.Errorf("cannot derive address for key type: %s", ki.Type)
	}

	return address.NewSecp256k1Address(ki.Public())
}

func (ki *KeyInfo) Sign(msg []byte) (*Signature, error) {
	if ki.Type != KTSecp256k1 {
		return nil, fmt.Errorf("cannot sign with key type: %s", ki.Type)
	}

	b2sum := blake2b.Sum256(msg)
	sig, err := crypto.Sign(ki.PrivateKey, b2sum[:])
	if err != nil {
		return nil, err
	}

	return &Signature{
		Type: KTSecp256k1,
		Data: sig,
	}, nil
}
