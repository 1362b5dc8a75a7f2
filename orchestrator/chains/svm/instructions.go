package svm

import (
	"bytes"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// SPL token instruction opcodes.
const (
	splRevoke          = 5
	splTransferChecked = 12
	splApproveChecked  = 13
	splMintToChecked   = 14
	splInitializeMint2 = 20
)

// MintAccountSize is the byte size of an SPL mint account.
const MintAccountSize = 82

// LamportsPerSignature is the base fee floor per signature.
const LamportsPerSignature = 5000

// ToU64 converts a non-negative big integer that fits in 64 bits.
func ToU64(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("amount %s does not fit in u64", v.String())
	}
	return v.Uint64(), nil
}

// TransferInstruction is a System program transfer.
func TransferInstruction(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}

// CreateMintAccountInstruction allocates a token-program-owned mint account.
func CreateMintAccountInstruction(payer, mint solana.PublicKey, rentLamports uint64) solana.Instruction {
	return system.NewCreateAccountInstruction(rentLamports, MintAccountSize, solana.TokenProgramID, payer, mint).Build()
}

func splData(opcode uint8, write func(enc *bin.Encoder) error) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint8(opcode); err != nil {
		return nil, err
	}
	if write != nil {
		if err := write(enc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func amountAndDecimals(amount uint64, decimals uint8) func(enc *bin.Encoder) error {
	return func(enc *bin.Encoder) error {
		if err := enc.WriteUint64(amount, bin.LE); err != nil {
			return err
		}
		return enc.WriteUint8(decimals)
	}
}

// TransferCheckedInstruction moves amount between token accounts of mint.
func TransferCheckedInstruction(source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8) (solana.Instruction, error) {
	data, err := splData(splTransferChecked, amountAndDecimals(amount, decimals))
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(source).WRITE(),
		solana.Meta(mint),
		solana.Meta(destination).WRITE(),
		solana.Meta(owner).SIGNER(),
	}, data), nil
}

// ApproveCheckedInstruction sets delegate's allowance on source.
func ApproveCheckedInstruction(source, mint, delegate, owner solana.PublicKey, amount uint64, decimals uint8) (solana.Instruction, error) {
	data, err := splData(splApproveChecked, amountAndDecimals(amount, decimals))
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(source).WRITE(),
		solana.Meta(mint),
		solana.Meta(delegate),
		solana.Meta(owner).SIGNER(),
	}, data), nil
}

// RevokeInstruction clears the delegate of source.
func RevokeInstruction(source, owner solana.PublicKey) (solana.Instruction, error) {
	data, err := splData(splRevoke, nil)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(source).WRITE(),
		solana.Meta(owner).SIGNER(),
	}, data), nil
}

// InitializeMint2Instruction initializes mint with no freeze authority.
func InitializeMint2Instruction(mint, authority solana.PublicKey, decimals uint8) (solana.Instruction, error) {
	data, err := splData(splInitializeMint2, func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(decimals); err != nil {
			return err
		}
		if err := enc.WriteBytes(authority[:], false); err != nil {
			return err
		}
		return enc.WriteUint8(0) // COption::None freeze authority
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(mint).WRITE(),
	}, data), nil
}

// MintToCheckedInstruction mints amount into destination.
func MintToCheckedInstruction(mint, destination, authority solana.PublicKey, amount uint64, decimals uint8) (solana.Instruction, error) {
	data, err := splData(splMintToChecked, amountAndDecimals(amount, decimals))
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		solana.Meta(mint).WRITE(),
		solana.Meta(destination).WRITE(),
		solana.Meta(authority).SIGNER(),
	}, data), nil
}

// BuildTransaction compiles instructions into a message paid by payer.
func BuildTransaction(payer solana.PublicKey, blockhash solana.Hash, instructions ...solana.Instruction) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	return tx, nil
}

// SignTransaction signs tx with every matching key.
func SignTransaction(tx *solana.Transaction, signers ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
