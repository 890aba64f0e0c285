// Package ppm provides an adaptive statistical text model built around
// Prediction by Partial Matching (PPM), paired with an arithmetic/range
// coder so a model's predictions can drive lossless compression directly.
//
// A Model tracks symbol statistics at every context order from 0 up to a
// configured maximum, backed by a variable-depth trie. When the deepest
// matching order has never seen the symbol being coded, the model "escapes"
// to the next shorter order, carrying an escape probability computed by one
// of a few standard PPM variants (escape methods A, C, D). An Engine owns
// any number of Models and Contexts; a Context is one evolving position
// inside a Model, e.g. "everything decoded so far in this stream".
//
// Below is an example of training a bounded-alphabet model on a short byte
// stream and encoding it with the package's default range coder:
//
//	eng := ppm.NewEngine()
//	model, _ := eng.CreateModel(ppm.CreateModelParams{
//		AlphabetSize: 256,
//		MaxOrder:     4,
//		EscapeMethod: ppm.EscapeD,
//	})
//	ctx, _ := eng.CreateContext(model)
//
//	var buf bytes.Buffer
//	coder := ppm.NewRangeEncoder(&buf)
//	for _, b := range []byte("the quick brown fox") {
//		eng.EncodeSymbol(ctx, coder, ppm.Symbol(b))
//	}
//	coder.Finish()
//
// Reference: the design is distilled from Tawa, a C toolkit for adaptive
// statistical modeling of text built around the same PPM/arithmetic-coding
// core (lib/pyTawa/ppm_context.c, Tawa/ppm_trie.c, lib/pyTawa/ptable.c).
package ppm
