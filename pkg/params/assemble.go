// Package params assembles the CampaignManagement constructor arguments and
// checks them against the contract's declared constructor.
package params

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lumera-labs/campaign-deploy/pkg/types"
)

// ParseAddress validates a 0x-prefixed, 20-byte hex address. Case is ignored and
// no EIP-55 checksum is enforced.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, types.NewFieldError(types.ErrInvalidAddress, "coin_address", s, "missing 0x prefix")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, types.NewFieldError(types.ErrInvalidAddress, "coin_address", s,
			fmt.Sprintf("want %d hex characters", 2*common.AddressLength))
	}
	return common.HexToAddress(s), nil
}

// Assemble projects schedule into (coinAddress, times, amounts). Entry order is
// preserved exactly; chronological order is trusted from schedule.Builder.
func Assemble(coinAddress string, schedule types.ReleaseSchedule) (types.DeploymentParameters, error) {
	addr, err := ParseAddress(coinAddress)
	if err != nil {
		return types.DeploymentParameters{}, err
	}
	if schedule.Len() == 0 {
		return types.DeploymentParameters{}, types.NewFieldError(types.ErrShapeMismatch, "", "", "schedule is empty")
	}
	return types.DeploymentParameters{
		CoinAddress: addr,
		Times:       schedule.Times(),
		Amounts:     schedule.Amounts(),
	}, nil
}

// ConstructorArguments describes constructor(address, uint256[], uint256[]).
func ConstructorArguments() abi.Arguments {
	addressTy, _ := abi.NewType("address", "", nil)
	uintsTy, _ := abi.NewType("uint256[]", "", nil)
	return abi.Arguments{
		{Name: "coinAddress", Type: addressTy},
		{Name: "times", Type: uintsTy},
		{Name: "amounts", Type: uintsTy},
	}
}

// CheckConstructor verifies that a contract ABI declares a constructor taking an
// address followed by two arrays of unsigned integers wide enough for *big.Int
// packing.
func CheckConstructor(contract abi.ABI) error {
	in := contract.Constructor.Inputs
	if len(in) != 3 {
		return types.NewFieldError(types.ErrConstructorMismatch, "constructor", signature(in),
			fmt.Sprintf("want 3 inputs, have %d", len(in)))
	}
	if in[0].Type.T != abi.AddressTy {
		return types.NewFieldError(types.ErrConstructorMismatch, "constructor.inputs[0]", in[0].Type.String(), "want address")
	}
	for i := 1; i < 3; i++ {
		t := in[i].Type
		if t.T != abi.SliceTy || t.Elem == nil || t.Elem.T != abi.UintTy || t.Elem.Size <= 64 {
			return types.NewFieldError(types.ErrConstructorMismatch, types.IndexField("constructor.inputs", i), t.String(), "want uint256[]")
		}
	}
	return nil
}

// Encode ABI-encodes p as constructor arguments.
func Encode(p types.DeploymentParameters) ([]byte, error) {
	if len(p.Times) != len(p.Amounts) {
		return nil, types.NewFieldError(types.ErrShapeMismatch, "", "",
			fmt.Sprintf("%d times but %d amounts", len(p.Times), len(p.Amounts)))
	}
	return ConstructorArguments().Pack(p.Args()...)
}

// Fingerprint is the keccak256 of the encoded arguments. Equal parameters give
// equal fingerprints, so two runs over the same config can be compared.
func Fingerprint(p types.DeploymentParameters) (string, error) {
	enc, err := Encode(p)
	if err != nil {
		return "", err
	}
	return crypto.Keccak256Hash(enc).Hex(), nil
}

// EncodeHex is Encode as a 0x-prefixed string.
func EncodeHex(p types.DeploymentParameters) (string, error) {
	enc, err := Encode(p)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(enc), nil
}

func signature(args abi.Arguments) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Type.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}
