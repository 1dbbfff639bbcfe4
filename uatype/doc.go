// Package uatype holds the data types shared by the bridge: the remote variant type system,
// the local fixed-width slot descriptors, access rights and status codes.
//
// Remote values are carried as Variant, a tagged union over the built-in variant types of
// the remote protocol. Scalars and arrays share one representation: the payload is always a
// typed slice and the array flag tells the two apart.
//
//	v := uatype.Scalar(float64(21.5))       // Double scalar
//	a := uatype.Array([]int16{1, 2, 3})     // Int16 array
//	v.Type()                                 // TypeDouble
//	a.Len()                                  // 3
package uatype
