package chainrpc

import (
	"fmt"
	"regexp"
	"strconv"
)

// Well known node error codes returned by send_transaction.
const (
	// CodeTransactionFailedToResolve is returned when an input or dep of
	// the transaction is unknown or already spent.
	CodeTransactionFailedToResolve int64 = -301

	// CodeTransactionFailedToVerify is returned when a script of the
	// transaction failed.
	CodeTransactionFailedToVerify int64 = -302

	// CodePoolRejectedDuplicatedTransaction is returned when the same
	// transaction is already in the pool.
	CodePoolRejectedDuplicatedTransaction int64 = -1107
)

// scriptCodePattern extracts the exit code of a failed script from a node
// error message. Both the old "ValidationFailure(-52)" and the newer
// "ValidationFailure: see error code -52 on page ..." forms are matched.
var scriptCodePattern = regexp.MustCompile(`ValidationFailure\D*?(-?\d+)`)

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	// Code is the JSON-RPC error code.
	Code int64 `json:"code"`

	// Message is the human readable error.
	Message string `json:"message"`

	// Data optionally carries more detail.
	Data interface{} `json:"data,omitempty"`
}

// Error returns the error string.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// LedgerRejection is returned when the ledger refuses a submitted
// transaction. If a script failed, ScriptCode holds its exit code.
type LedgerRejection struct {
	// RPCCode is the node's error code.
	RPCCode int64

	// ScriptCode is the non-zero exit code of the failing script, or zero
	// if the rejection didn't come from a script.
	ScriptCode int64

	// Message is the node's error message.
	Message string
}

// NewLedgerRejection turns a node error into a LedgerRejection, extracting
// the script exit code if the message carries one.
func NewLedgerRejection(rpcErr *RPCError) *LedgerRejection {
	l := &LedgerRejection{
		RPCCode: rpcErr.Code,
		Message: rpcErr.Message,
	}

	match := scriptCodePattern.FindStringSubmatch(rpcErr.Message)
	if len(match) == 2 {
		code, err := strconv.ParseInt(match[1], 10, 64)
		if err == nil {
			l.ScriptCode = code
		}
	}

	return l
}

// Error returns the error string.
func (l *LedgerRejection) Error() string {
	if l.ScriptCode != 0 {
		return fmt.Sprintf("ledger rejected transaction (rpc code %d, "+
			"script code %d): %s", l.RPCCode, l.ScriptCode,
			l.Message)
	}

	return fmt.Sprintf("ledger rejected transaction (rpc code %d): %s",
		l.RPCCode, l.Message)
}

// IsScriptFailure returns true if the rejection carries the given script
// exit code.
func (l *LedgerRejection) IsScriptFailure(code int64) bool {
	return l.ScriptCode != 0 && l.ScriptCode == code
}
