// ABOUTME: Byte-counting reader wrapper
// ABOUTME: Tracks encoded bytes pulled by an engine between rounds
package decode

import "io"

type countingReader struct {
	r     io.Reader
	total int64
	mark  int64
}

func newCountingReader(r io.Reader) *countingReader {
	return &countingReader{r: r}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.total += int64(n)
	return n, err
}

// take returns the bytes read since the previous take
func (c *countingReader) take() int {
	n := c.total - c.mark
	c.mark = c.total
	return int(n)
}
