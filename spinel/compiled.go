package spinel

// Compiled is a format string parsed once into its element tree. Property
// registries cache these (see property.Registry) instead of recompiling a
// format string on every decode, per the "recursive format parsing ->
// precompile" design note.
type Compiled struct {
	elems []formatElem
}

// Compile parses format into a Compiled tree.
func Compile(format string) (Compiled, error) {
	elems, err := compileFormat(format)
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{elems: elems}, nil
}

// Decode decodes the compiled format from the head of buf, returning the
// decoded value, the number of bytes consumed, and any error.
func (c Compiled) Decode(buf []byte) (any, int, error) {
	values, n, err := decodeElems(buf, c.elems)
	if err != nil {
		return nil, 0, err
	}
	return unwrap(values), n, nil
}

// Encode is the dual of Decode.
func (c Compiled) Encode(value any) ([]byte, error) {
	values, err := wrap(value, len(c.elems))
	if err != nil {
		return nil, err
	}
	return encodeElems(c.elems, values)
}

// Measure reports how many bytes the compiled format would consume from
// the head of buf without decoding it.
func (c Compiled) Measure(buf []byte) (int, error) {
	return measureElems(buf, c.elems)
}
