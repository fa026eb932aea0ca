package interpreter

import (
	"github.com/bchyl/pevm-opt-2/crypto"
	"github.com/bchyl/pevm-opt-2/types"
)

// Interpreter is the external-collaborator contract spec.md §6 names:
// Execute(tx, ctx) -> ExecutionResult.
type Interpreter interface {
	Execute(tx types.Transaction, ctx *Context) types.ExecutionResult
}

// MicroOpInterpreter is the toy reference implementation: it dispatches
// SLoad/SStore/Add/Sub/Keccak/NoOp in program order.
type MicroOpInterpreter struct{}

func NewMicroOpInterpreter() *MicroOpInterpreter {
	return &MicroOpInterpreter{}
}

func (MicroOpInterpreter) Execute(tx types.Transaction, ctx *Context) types.ExecutionResult {
	// EIP-2930-style warmup: every access-list key is pre-warmed before
	// the program runs, so the first touch inside the program does not
	// pay the cold surcharge.
	for _, k := range tx.Metadata.AccessList {
		ctx.touch(k)
	}

	for _, op := range tx.Metadata.Program {
		if err := executeOp(op, ctx); err != nil {
			return types.NewFailureResult(tx.ID, ctx.Access, ctx.WarmKeys, ctx.ColdKeys, err.Error())
		}
	}

	return types.NewSuccessResult(tx.ID, ctx.GasUsed, ctx.Access, ctx.WarmKeys, ctx.ColdKeys)
}

type gasExhaustedError struct{}

func (gasExhaustedError) Error() string { return "interpreter: out of gas" }

func executeOp(op types.MicroOp, ctx *Context) error {
	switch op.Kind {
	case types.OpSLoad:
		isCold := !ctx.isWarm(op.Key)
		cost := sloadGas(isCold)
		if !ctx.checkGas(cost) {
			return gasExhaustedError{}
		}
		ctx.consumeGas(cost)
		ctx.touch(op.Key)
		ctx.Access.AddRead(op.Key)
		ctx.push(ctx.Storage.Get(op.Key))

	case types.OpSStore:
		isCold := !ctx.isWarm(op.Key)
		current := ctx.Storage.Get(op.Key)
		cost := sstoreGas(isCold, current, op.Val)
		if !ctx.checkGas(cost) {
			return gasExhaustedError{}
		}
		ctx.consumeGas(cost)
		ctx.touch(op.Key)
		ctx.Access.AddWrite(op.Key)
		ctx.Storage.Set(op.Key, op.Val)

	case types.OpAdd:
		if !ctx.checkGas(addCost) {
			return gasExhaustedError{}
		}
		ctx.consumeGas(addCost)
		b := ctx.pop()
		a := ctx.pop()
		ctx.push(a.Add(b))

	case types.OpSub:
		if !ctx.checkGas(subCost) {
			return gasExhaustedError{}
		}
		ctx.consumeGas(subCost)
		b := ctx.pop()
		a := ctx.pop()
		ctx.push(a.Sub(b))

	case types.OpKeccak:
		cost := keccakGas(len(op.Data))
		if !ctx.checkGas(cost) {
			return gasExhaustedError{}
		}
		ctx.consumeGas(cost)
		digest := crypto.Keccak256(op.Data)
		ctx.push(types.NewValueFromBytes32([32]byte(digest)))

	case types.OpNoOp:
		if !ctx.checkGas(noopCost) {
			return gasExhaustedError{}
		}
		ctx.consumeGas(noopCost)
	}

	return nil
}

var _ Interpreter = (*MicroOpInterpreter)(nil)
