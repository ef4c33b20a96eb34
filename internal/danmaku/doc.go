// Package danmaku defines the canonical comment record shared by the
// readers, the row-layout engine and the ASS writer, together with the
// option types and the decode/parse/configuration error taxonomy.
//
// A [Comment] carries a tagged [Payload]: comments positioned as
// [Special] hold a [SpecialPayload] with decoded animation parameters,
// every other position holds a [NormalPayload] with estimated text
// dimensions.
package danmaku
