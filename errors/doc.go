// Package errors provides structured error types for the COM runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/COM type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Path("IMath", "Sqrt", "value").
//		GoType("string").
//		ComType("double").
//		Detail("cannot convert string to double").
//		Build()
//
// Every Error maps to an HRESULT through its Kind, or through an explicit Code.
//
// ComError is the value that crosses the ABI boundary: a status code plus
// optional ErrorInfo (description, source, help file). Native methods may
// return any error; ToComError lowers it:
//
//	return errors.Fail(hresult.E_INVALIDARG, "negative input %v", x)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
