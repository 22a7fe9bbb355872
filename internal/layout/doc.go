// Package layout computes binary layouts for the object model.
//
// Calculator gives the C layout of plain data types (fixed-size scalars,
// arrays and structs of those) and verifies Go agrees with it, which is what
// lets such values be passed by pointer across the ABI unchanged.
//
// Box derives the per-class object allocation: the vtable list, the
// reference count and the value, with every offset fixed once the class is
// registered.
//
// # Layout Rules
//
//   - Scalars: size equals alignment (bool=1, uint32=4, float64=8, etc.)
//   - Arrays: element layout repeated, element alignment
//   - Structs: fields laid out sequentially with padding for alignment,
//     size rounded to the largest field alignment
//
// This package is internal to the runtime.
package layout
