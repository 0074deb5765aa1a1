package tx

import (
	"crypto/ed25519"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/zeebo/blake3"

	"StudentIntro/internal/address"
	"StudentIntro/internal/types"
)

// Call is an unsigned program call.
type Call struct {
	Program  address.Address   // Program is the target program id
	Method   string            // Method is the instruction name
	Args     []byte            // Args are the Borsh-encoded arguments
	Accounts []address.Address // Accounts are optional explicit account addresses
	Nonce    uint64            // Nonce distinguishes otherwise identical calls
}

// Build signs call with privKey and returns the Transaction bytes and hash.
func Build(privKey ed25519.PrivateKey, call Call) ([]byte, [32]byte) {
	sender := privKey.Public().(ed25519.PublicKey)
	accounts := joinAccounts(call.Accounts)

	unsigned := unsignedTxBytes(sender, call.Program[:], call.Method, call.Args, accounts, call.Nonce)
	hash := blake3.Sum256(unsigned)
	sig := ed25519.Sign(privKey, hash[:])

	builder := flatbuffers.NewBuilder(512)

	hashVec := builder.CreateByteVector(hash[:])
	sigVec := builder.CreateByteVector(sig)
	senderVec := builder.CreateByteVector(sender)
	programVec := builder.CreateByteVector(call.Program[:])
	funcNameOff := builder.CreateString(call.Method)
	argsVec := builder.CreateByteVector(call.Args)

	var accountsVec flatbuffers.UOffsetT
	if len(accounts) > 0 {
		accountsVec = builder.CreateByteVector(accounts)
	}

	types.TransactionStart(builder)
	types.TransactionAddHash(builder, hashVec)
	types.TransactionAddSender(builder, senderVec)
	types.TransactionAddSignature(builder, sigVec)
	types.TransactionAddProgram(builder, programVec)
	types.TransactionAddFunctionName(builder, funcNameOff)
	types.TransactionAddArgs(builder, argsVec)
	if len(accounts) > 0 {
		types.TransactionAddAccounts(builder, accountsVec)
	}
	types.TransactionAddNonce(builder, call.Nonce)
	txOff := types.TransactionEnd(builder)

	builder.Finish(txOff)

	return builder.FinishedBytes(), hash
}

// unsignedTxBytes builds the transaction without hash and signature; its
// blake3 digest is the transaction hash. Build and Verify must share it.
func unsignedTxBytes(sender, program []byte, method string, args, accounts []byte, nonce uint64) []byte {
	builder := flatbuffers.NewBuilder(512)

	senderVec := builder.CreateByteVector(sender)
	programVec := builder.CreateByteVector(program)
	funcNameOff := builder.CreateString(method)
	argsVec := builder.CreateByteVector(args)

	var accountsVec flatbuffers.UOffsetT
	if len(accounts) > 0 {
		accountsVec = builder.CreateByteVector(accounts)
	}

	types.TransactionStart(builder)
	types.TransactionAddSender(builder, senderVec)
	types.TransactionAddProgram(builder, programVec)
	types.TransactionAddFunctionName(builder, funcNameOff)
	types.TransactionAddArgs(builder, argsVec)
	if len(accounts) > 0 {
		types.TransactionAddAccounts(builder, accountsVec)
	}
	types.TransactionAddNonce(builder, nonce)
	txOff := types.TransactionEnd(builder)

	builder.Finish(txOff)

	return builder.FinishedBytes()
}

// joinAccounts concatenates addresses into one byte vector.
func joinAccounts(accounts []address.Address) []byte {
	if len(accounts) == 0 {
		return nil
	}

	out := make([]byte, 0, len(accounts)*address.Size)
	for _, a := range accounts {
		out = append(out, a[:]...)
	}

	return out
}
