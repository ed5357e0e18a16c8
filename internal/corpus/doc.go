// Package corpus loads recitation text. A corpus is a plain text file of
// "passage|unit|text" lines; blank lines and lines starting with '#' are
// ignored, and "@passage|name" lines name a passage. Files ending in .md
// are read as Markdown instead: numbered headings open passages and ordered
// list items are their units.
package corpus
