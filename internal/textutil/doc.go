// Package textutil provides the text primitives shared by matching, cache
// keying, and the lexical similarity oracle.
//
// The primary use cases are:
//   - Folding names to an accent-free, lowercase, space-separated form
//   - Edit-distance and token-set similarity between display names
//   - TF-IDF name vectors weighted by catalog vocabulary, compared by cosine
//   - Stripping version tokens and filler adjectives before hashing evidence
//
// Content tokens are folded words of at least three characters that are not
// stopwords ("mod", "sims", "the", ...).
package textutil
