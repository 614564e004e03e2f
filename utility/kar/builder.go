// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"io"
	"sync"

	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

// NewBuilder creates a new Builder. Do not fill the Index in
// the header, it will be overwritten anyway.
func NewBuilder(header Header) *Builder {
	header.Index = nil
	return &Builder{
		header: header,
		names:  make(map[string]struct{}),
	}
}

type pendingFile struct {
	name       string
	size       int64
	compressed []byte
}

// Builder is the high level builder for the archive format.
// Archives are versioned and cannot be appended to, a Builder
// is the way to create one. Files given to Add are compressed
// right away and kept in memory until WriteTo bundles them.
type Builder struct {
	header Header

	mutex sync.Mutex
	names map[string]struct{}
	files []pendingFile
}

// Add appends data to the builder with a given name.
// Will block until lz4 finishes compression. Is safe
// to use concurrently in different goroutines.
func (b *Builder) Add(name string, r io.Reader) error {
	b.mutex.Lock()
	_, exists := b.names[name]
	if !exists {
		b.names[name] = struct{}{}
	}
	b.mutex.Unlock()
	if exists {
		return errors.Wrap(ErrDuplicate, name)
	}

	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	written, err := io.Copy(writer, r)
	if err != nil {
		b.forget(name)
		return errors.Wrapf(err, "kar.Add(%s)", name)
	}
	if err := writer.Close(); err != nil {
		b.forget(name)
		return errors.Wrapf(err, "kar.Add(%s)", name)
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = append(b.files, pendingFile{
		name:       name,
		size:       written,
		compressed: buf.Bytes(),
	})
	return nil
}

func (b *Builder) forget(name string) {
	b.mutex.Lock()
	delete(b.names, name)
	b.mutex.Unlock()
}

// Len returns the number of files added so far.
func (b *Builder) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.files)
}

// WriteTo bundles and writes all of the files added to the Builder
// into a kar archive that is ready to use. Files keep the order
// they were added in.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = make([]IndexEntry, 0, len(b.files))
	var offset int64
	for _, f := range b.files {
		header.Index = append(header.Index, IndexEntry{
			Name:           f.name,
			Offset:         offset,
			Size:           f.size,
			CompressedSize: int64(len(f.compressed)),
		})
		offset += int64(len(f.compressed))
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, errors.Wrap(err, "kar.WriteTo(): encoding header")
	}

	var total int64
	chunks := [][]byte{magic[:], int64ToBinary(int64(len(rawHeader))), rawHeader}
	for _, f := range b.files {
		chunks = append(chunks, f.compressed)
	}
	for _, chunk := range chunks {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, errors.Wrap(err, "kar.WriteTo()")
		}
	}
	return total, nil
}
