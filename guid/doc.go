// Package guid implements the 128-bit identifiers used as interface IDs
// (IID), class IDs (CLSID) and library IDs (LIBID).
//
// # Textual forms
//
// Parse accepts exactly three forms, told apart by length:
//
//	{6C4BBE1C-F6A1-4A1E-9A0F-8A2B4D3E2F10}   38 characters
//	6C4BBE1C-F6A1-4A1E-9A0F-8A2B4D3E2F10     36 characters
//	6C4BBE1CF6A14A1E9A0F8A2B4D3E2F10         32 characters
//
// String produces the braced form. Hex, Hyphenated, Braced and Literal
// produce the forms used by code and IDL generators.
//
// # Generated IDs
//
// Declarations without an explicit ID get one from Generate, which hashes a
// composite key (kind, library name, item name, type system) so rebuilding
// unchanged declarations yields unchanged IDs.
package guid
