// Package assets loads the stylesheets injected into every rendered document.
//
// Two sources exist:
//
//   - EmbeddedLoader serves built-in styles compiled into the binary
//     (styles/{name}.css), selected by name.
//   - FilesystemLoader reads every *.css file of an operator-supplied
//     directory, in lexical order.
//
// LoadStyles combines both once at startup. The returned slice is treated as
// immutable for the lifetime of the process.
//
// # Security
//
// Style names are validated before use. FilesystemLoader resolves symlinks and
// refuses any stylesheet whose real path leaves the style directory.
package assets
