package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TypedDataSigner produces EIP-712 signatures on behalf of a single account.
type TypedDataSigner interface {
	Address() common.Address
	// SignTypedData returns the 65 byte [R || S || V] signature over the EIP-712 digest, with V in {27, 28}.
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}

// LocalSigner signs with an in-memory private key.
type LocalSigner struct {
	priv *ecdsa.PrivateKey
	addr common.Address
}

var _ TypedDataSigner = (*LocalSigner)(nil)

func NewLocalSigner(priv *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{priv: priv, addr: crypto.PubkeyToAddress(priv.PublicKey)}
}

// ParsePrivateKey decodes a hex encoded secp256k1 private key, with or without 0x prefix.
func ParsePrivateKey(key string) (*ecdsa.PrivateKey, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(strings.TrimPrefix(key, "0x"), "0X")
	priv, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return priv, nil
}

// LoadLocalSigner parses key, or generates a new key when key is empty.
// Generated keys are never persisted.
func LoadLocalSigner(key string) (*LocalSigner, error) {
	if key == "" {
		priv, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		return NewLocalSigner(priv), nil
	}
	priv, err := ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(priv), nil
}

func (s *LocalSigner) Address() common.Address {
	return s.addr
}

func (s *LocalSigner) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	if s.priv == nil {
		return nil, errors.New("signer is closed")
	}
	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	sig, err := crypto.Sign(digest, s.priv)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

func (s *LocalSigner) Close() error {
	s.priv = nil
	return nil
}

// RecoverTypedDataSigner returns the account that produced sig over data.
func RecoverTypedDataSigner(data apitypes.TypedData, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(sig))
	}
	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	normalized := common.CopyBytes(sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
