// Package detectors extracts secret candidates from file contents. Three
// independent passes run over every line: a fixed table of provider key
// patterns, a Shannon entropy threshold over password-alphabet tokens, and a
// speculative base64 decode. Results are unioned; the same token may appear
// once per origin.
package detectors
