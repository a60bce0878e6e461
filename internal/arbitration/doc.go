// Package arbitration runs the final, expensive decision step over a bounded
// candidate set.
//
// The Gate checks that the query identity is worth an oracle call, refreshes
// candidate titles from the live catalog (best effort), and asks a
// SimilarityOracle for one confidence per candidate. A single weak candidate is
// confirmed or rejected against ConfirmThreshold; several candidates need a
// winner above AcceptThreshold with a MinArbitrationGap margin. Oracle failures
// and timeouts never surface as errors: the caller's fuzzy decision is returned
// with the cause appended and Degraded set.
//
// Oracles shipped here:
//   - LexicalOracle: offline TF-IDF cosine blended with edit ratio.
//   - EmbeddingOracle: cosine over embeddings, with a Gemini embedder.
//
// The LLM oracle lives in services/llm and is adapted with OracleFunc.
package arbitration
