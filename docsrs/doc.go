// Package docsrs fetches and decodes rustdoc JSON from docs.rs.
//
// docs.rs serves rustdoc JSON gzip-compressed with Content-Type
// application/gzip, which the transport does not auto-decompress; the
// client detects the gzip magic bytes and decompresses manually. Decoded
// documentation trees are large and are shared read-only through the
// docscache package.
package docsrs
