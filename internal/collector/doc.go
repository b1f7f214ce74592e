// Package collector discovers and reads the text files of a source tree.
//
// Files are selected by a case-sensitive extension allowlist. Entries that
// start with a dot match as suffixes (".py" selects "a.py" but not "a.pyc");
// bare names such as "Dockerfile" match that exact file name or a
// ".Dockerfile" suffix. Directories named in the ignore set are pruned.
//
// # Guards
//
// The walk never follows symbolic links. Each candidate file then passes
// through these guards, and any failure skips the file rather than aborting:
//
//   - Size: files over MaxFileBytes (1 MiB by default) are skipped.
//   - Binary: a NUL byte in the first 8 KiB marks the file as binary.
//   - Encoding: UTF-8 (BOM stripped), UTF-16 when a BOM says so, then
//     Windows-1252 when DecodeFallback is enabled.
//
// Only a missing or unreadable root is fatal (types.ErrDiscovery).
//
// Documents are returned in lexicographic order of their slash-separated,
// root-relative paths so that downstream chunk ids are reproducible.
package collector
