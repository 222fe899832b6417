// Package artifact loads a compiled contract (ABI and creation bytecode) from a
// Truffle, Hardhat or Foundry JSON artifact.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/xerrors"

	"github.com/lumera-labs/campaign-deploy/pkg/params"
)

type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// Load reads path and checks that the constructor matches the campaign
// parameter tuple.
func Load(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("read artifact %s: %w", path, err)
	}
	a, err := Parse(b)
	if err != nil {
		return nil, xerrors.Errorf("artifact %s: %w", path, err)
	}
	return a, nil
}

func Parse(b []byte) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if len(raw.ABI) == 0 {
		return nil, errors.New("missing abi")
	}
	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, xerrors.Errorf("parse abi: %w", err)
	}
	code, err := decodeBytecode(raw.Bytecode)
	if err != nil {
		return nil, err
	}
	if err := params.CheckConstructor(parsed); err != nil {
		return nil, err
	}
	return &Artifact{Name: raw.ContractName, ABI: parsed, Bytecode: code}, nil
}

// decodeBytecode accepts "0x..." (Truffle, Hardhat) or {"object": "0x..."} (Foundry).
func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, errors.New("missing bytecode")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err2 := json.Unmarshal(raw, &obj); err2 != nil {
			return nil, xerrors.Errorf("bytecode: %w", err)
		}
		s = obj.Object
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	if s == "0x" {
		return nil, errors.New("empty bytecode (abstract contract or interface?)")
	}
	if strings.Contains(s, "__") {
		return nil, errors.New("bytecode has unlinked library placeholders")
	}
	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, xerrors.Errorf("bytecode: %w", err)
	}
	return code, nil
}
