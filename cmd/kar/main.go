// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/tilesweep/utility/kar"
)

func init() {
	currentUserName = "unknown"
	if u, err := user.Current(); err == nil && u.Name != "" {
		currentUserName = u.Name
	}
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the file given")
	compress        = flag.String("c", "", "Compress the given file/folder")
	dstFile         = flag.String("f", "out.kar", "Destination file, or directory when extracting")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	switch {
	case *extract != "" && *compress != "":
		log.Fatal("only one operation at a time")
	case *extract != "":
		if err := extractFiles(*extract, *dstFile); err != nil {
			log.Fatal(err)
		}
	case *compress != "":
		if err := compressFiles(*compress, *dstFile); err != nil {
			log.Fatal(err)
		}
	default:
		flag.PrintDefaults()
	}
}

func compressFiles(root, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return errors.Errorf("destination file %s exists, will not overwrite", dstPath)
	}

	var filesToCompress []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		filesToCompress = append(filesToCompress, path)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "walk")
	}

	name := *author
	if name == "" {
		name = currentUserName
	}
	builder := kar.NewBuilder(kar.Header{
		Author:      name,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})

	for _, ftc := range filesToCompress {
		if err := addFile(builder, root, ftc); err != nil {
			return err
		}
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := builder.WriteTo(dst)
	if err != nil {
		return errors.Wrapf(err, "write %s", dstPath)
	}
	log.WithFields(log.Fields{
		"files": builder.Len(),
		"bytes": n,
		"dst":   dstPath,
	}).Info("archive written")
	return nil
}

// addFile stores path under its slash separated name relative to root.
func addFile(builder *kar.Builder, root, path string) error {
	name, err := filepath.Rel(root, path)
	if err != nil || name == "." {
		name = filepath.Base(path)
	}
	name = filepath.ToSlash(name)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := builder.Add(name, f); err != nil {
		return errors.Wrapf(err, "add %s", name)
	}
	log.WithField("file", name).Debug("added")
	return nil
}

func extractFiles(srcPath, dstDir string) error {
	if dstDir == "out.kar" {
		dstDir = strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	archive, err := kar.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %s", srcPath)
	}
	header := archive.Header()
	log.WithFields(log.Fields{
		"author":  header.Author,
		"version": header.Version,
		"created": time.Unix(header.DateCreated, 0).Format(time.RFC3339),
	}).Info("archive opened")

	for _, name := range archive.Names() {
		if err := extractFile(archive, name, dstDir); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(archive *kar.Archive, name, dstDir string) error {
	target := filepath.Join(dstDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dstDir)+string(os.PathSeparator)) {
		return errors.Errorf("entry %s escapes the destination", name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	r, err := archive.Open(name)
	if err != nil {
		return errors.Wrapf(err, "extract %s", name)
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return errors.Wrapf(err, "extract %s", name)
	}
	log.WithField("file", target).Debug("extracted")
	return nil
}
