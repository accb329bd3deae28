package api

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// signedMessageFormat is the exact text wallets sign to authenticate.
const signedMessageFormat = "I agree to connect my wallet to the simple push service. Timestamp: %d"

// VerifyWalletSignature recovers the signer of the personal-sign message for
// the given timestamp and checks it matches address.
func VerifyWalletSignature(address, signature string, timestamp int64) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("malformed wallet address")
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("malformed signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("malformed signature: want %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	// Wallets emit V as 27/28; go-ethereum expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	message := fmt.Sprintf(signedMessageFormat, timestamp)
	hash := accounts.TextHash([]byte(message))

	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("failed to recover signer: %w", err)
	}

	if crypto.PubkeyToAddress(*pubKey) != common.HexToAddress(address) {
		return fmt.Errorf("signature does not match address")
	}
	return nil
}
