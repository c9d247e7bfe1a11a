package valuetype

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opal-lang/acd/core/model"
)

// pathType checks that an input file or directory exists.
type pathType struct{ base }

func (t pathType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	if res, done, err := allowEmpty(reply, attr); done {
		return res, err
	}
	path := strings.TrimSpace(reply)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("%s does not exist", path)
		}
		return Result{}, err
	}

	wantDir := t.typ.Name != "infile"
	switch {
	case wantDir && !info.IsDir():
		return Result{}, fmt.Errorf("%s is not a directory", path)
	case !wantDir && info.IsDir():
		return Result{}, fmt.Errorf("%s is a directory", path)
	}
	if wantDir && isTrue(attr("fullpath")) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return Result{Value: path, Canonical: path}, nil
}

// fileListType reads a comma separated list of existing files.
type fileListType struct{ base }

func (t fileListType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	if res, done, err := allowEmpty(reply, attr); done {
		return res, err
	}
	var files []string
	for _, f := range strings.Split(reply, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return Result{}, fmt.Errorf("%s does not exist", f)
		}
		files = append(files, f)
	}
	return Result{Value: files, Canonical: strings.Join(files, ",")}, nil
}

// outputType accepts any name, or nothing when nullok is set. The directory
// of a named file must exist.
type outputType struct{ base }

func (t outputType) Set(it *model.Item, reply string, attr AttrFunc) (Result, error) {
	if res, done, err := allowEmpty(reply, attr); done {
		return res, err
	}
	name := strings.TrimSpace(reply)
	if name != "stdout" && name != "stderr" && t.typ.Name != "outdir" {
		dir := filepath.Dir(name)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return Result{}, fmt.Errorf("cannot write %s: directory %s does not exist", name, dir)
		}
	}
	return Result{Value: name, Canonical: name}, nil
}
