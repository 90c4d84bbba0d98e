// Package printing holds the page geometry shared by the export strategies:
// paper sizes, margins and the pixel viewport a document is laid out in.
package printing
