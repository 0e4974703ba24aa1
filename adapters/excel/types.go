package excel

// RawData is the untyped grid read from a file before column typing:
// trimmed headers plus rows of raw cell strings.
type RawData struct {
	Headers []string
	Rows    [][]string
}
