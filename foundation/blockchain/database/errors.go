package database

import "errors"

// Set of errors that do not represent a consensus rule violation.
var (
	ErrNotFound = errors.New("not found")
	ErrDecode   = errors.New("decode failed")
)

// ErrorKind identifies a kind of consensus rule violation. It has full support
// for errors.Is and errors.As, so the caller can directly check against an
// error kind when determining the reason a block or transaction was rejected.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrBadPrevHash indicates the block does not build on the current head.
	ErrBadPrevHash = ErrorKind("ErrBadPrevHash")

	// ErrBadHeight indicates the block height is not the head height plus one.
	ErrBadHeight = ErrorKind("ErrBadHeight")

	// ErrDifficultyTooLow indicates the block declares a difficulty below
	// the difficulty the chain requires.
	ErrDifficultyTooLow = ErrorKind("ErrDifficultyTooLow")

	// ErrHighHash indicates the block hash does not have the number of
	// leading zero bits the declared difficulty requires.
	ErrHighHash = ErrorKind("ErrHighHash")

	// ErrBadMerkleRoot indicates the merkle root in the header does not
	// commit to the transactions of the block.
	ErrBadMerkleRoot = ErrorKind("ErrBadMerkleRoot")

	// ErrNoTransactions indicates the block carries no transactions.
	ErrNoTransactions = ErrorKind("ErrNoTransactions")

	// ErrBadCoinbase indicates the first transaction is not a valid coinbase
	// for the height and reward.
	ErrBadCoinbase = ErrorKind("ErrBadCoinbase")

	// ErrUnexpectedCoinbase indicates a coinbase input shows up anywhere
	// other than the first transaction of a block.
	ErrUnexpectedCoinbase = ErrorKind("ErrUnexpectedCoinbase")

	// ErrNoTxInputs indicates a transaction without any inputs.
	ErrNoTxInputs = ErrorKind("ErrNoTxInputs")

	// ErrMissingUTXO indicates an input references an output that is not
	// in the UTXO set or created earlier in the same block.
	ErrMissingUTXO = ErrorKind("ErrMissingUTXO")

	// ErrDoubleSpend indicates an input references an output already spent
	// earlier in the same block or the same transaction.
	ErrDoubleSpend = ErrorKind("ErrDoubleSpend")

	// ErrBadPubKey indicates the public key of an input is not a valid
	// x-only key.
	ErrBadPubKey = ErrorKind("ErrBadPubKey")

	// ErrWrongOwner indicates the public key of an input does not hash to
	// the recipient of the output being spent.
	ErrWrongOwner = ErrorKind("ErrWrongOwner")

	// ErrBadSignature indicates the signature of an input does not verify.
	ErrBadSignature = ErrorKind("ErrBadSignature")

	// ErrInsufficientInput indicates the outputs of a transaction are worth
	// more than its inputs.
	ErrInsufficientInput = ErrorKind("ErrInsufficientInput")

	// ErrValueOverflow indicates the sum of the input or output values does
	// not fit into 64 bits.
	ErrValueOverflow = ErrorKind("ErrValueOverflow")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation. It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the
// error by checking the underlying error.
type RuleError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}

// IsRuleError reports whether the error chain holds a consensus rule
// violation.
func IsRuleError(err error) bool {
	var re RuleError
	return errors.As(err, &re)
}
