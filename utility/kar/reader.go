// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

// Open opens the kar archive from r. It will also check
// if the file is actually a kar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	prefix := make([]byte, MagicLength+HeaderSizeNumberLength)
	if _, err := r.ReadAt(prefix, 0); err != nil {
		if err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, err
	}
	if !bytes.Equal(prefix[:MagicLength], magic[:]) {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToInt64(prefix[MagicLength:])
	if err != nil {
		return nil, err
	}

	headerBytes := make([]byte, headerSize)
	if _, err := r.ReadAt(headerBytes, int64(len(prefix))); err != nil {
		if err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, err
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, errors.Wrap(ErrFileFormat, err.Error())
	}

	ar := &Archive{
		reader:    r,
		header:    header,
		dataStart: int64(len(prefix)) + headerSize,
		index:     make(map[string]int, len(header.Index)),
	}
	for idx, entry := range header.Index {
		if entry.Offset < 0 || entry.CompressedSize < 0 || entry.Size < 0 {
			return nil, ErrFileFormat
		}
		ar.index[entry.Name] = idx
	}
	return ar, nil
}

// Archive is a read-only view of a kar file.
type Archive struct {
	reader    io.ReaderAt
	header    Header
	dataStart int64
	index     map[string]int
}

// Header returns the archive header, index included.
func (a *Archive) Header() Header {
	return a.header
}

// Names lists the files in the order they were archived.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.header.Index))
	for _, entry := range a.header.Index {
		names = append(names, entry.Name)
	}
	return names
}

// Stat returns the index entry for name.
func (a *Archive) Stat(name string) (IndexEntry, error) {
	idx, ok := a.index[name]
	if !ok {
		return IndexEntry{}, errors.Wrap(ErrNotFound, name)
	}
	return a.header.Index[idx], nil
}

// Open returns a Reader that decompresses the named file.
func (a *Archive) Open(name string) (*Reader, error) {
	entry, err := a.Stat(name)
	if err != nil {
		return nil, err
	}
	section := io.NewSectionReader(a.reader, a.dataStart+entry.Offset, entry.CompressedSize)
	return &Reader{
		entry: entry,
		lz:    lz4.NewReader(section),
	}, nil
}

// ReadAll reads and decompresses the whole named file.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "kar.ReadAll(%s)", name)
	}
	if int64(len(data)) != r.Size() {
		return nil, errors.Wrapf(ErrFileFormat, "kar.ReadAll(%s): size %d, expected %d", name, len(data), r.Size())
	}
	return data, nil
}

// Reader streams one decompressed file out of the archive.
type Reader struct {
	entry IndexEntry
	lz    *lz4.Reader
}

// Read implements io.Reader
func (r *Reader) Read(p []byte) (int, error) {
	return r.lz.Read(p)
}

// Name of the file being read.
func (r *Reader) Name() string {
	return r.entry.Name
}

// Size is the uncompressed size of the file.
func (r *Reader) Size() int64 {
	return r.entry.Size
}
