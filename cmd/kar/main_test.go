package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCompressAndExtract(t *testing.T) {
	c := qt.New(t)
	src := c.TempDir()
	files := map[string]string{
		"shaders/vertex.spv": "vertex",
		"textures/atlas.png": "atlas",
		"README":             "readme",
	}
	for name, content := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
		c.Assert(ioutil.WriteFile(path, []byte(content), 0644), qt.IsNil)
	}

	archive := filepath.Join(c.TempDir(), "assets.kar")
	c.Assert(compressFiles(src, archive), qt.IsNil)
	c.Assert(compressFiles(src, archive), qt.ErrorMatches, ".*will not overwrite")

	dst := c.TempDir()
	c.Assert(extractFiles(archive, dst), qt.IsNil)
	for name, content := range files {
		data, err := ioutil.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Equals, content)
	}
}
