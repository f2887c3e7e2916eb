package mock

import "go.tessera.dev/ftpcore"

// File is one in-memory file or directory node.
type File struct {
	Name    string
	IsDir   bool
	Content []byte
	Mtime   int64
	Entries []*File // populated when IsDir
}

// Fs is a scripted, in-memory filesystem backend implementing
// ftpcore.Fs plus all four optional capabilities (MkdirFs, RmdirFs,
// SizeFs, MtimeFs), so tests can toggle capability-detection behavior by
// wrapping or trimming it. Paths are matched verbatim against Name; there
// is no real path resolution or sandboxing (that is an embedder concern,
// out of scope for the core).
type Fs struct {
	root *File
	cwd  *File

	// FailOpenDir / FailOpenRead / FailOpenWrite, when non-nil, are
	// returned verbatim by the corresponding Open call regardless of path,
	// for exercising the Fs-error table from transfer-open failures.
	FailOpenDir   error
	FailOpenRead  error
	FailOpenWrite error

	// WriteChunk caps the bytes each FileWriter.Write call accepts from
	// STOR, 0 meaning unlimited; it exercises the short-write resume path.
	WriteChunk int
}

// NewFs builds a backend rooted at root, with root itself as the initial
// current directory.
func NewFs(root *File) *Fs {
	return &Fs{root: root, cwd: root}
}

func (f *Fs) find(name string) *File {
	if name == "" {
		return f.cwd
	}
	for _, e := range f.cwd.Entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (f *Fs) CwdInit() (ftpcore.Cwd, error) { return &cwd{fs: f}, nil }

func (f *Fs) OpenDir(path string) (ftpcore.DirIter, error) {
	if f.FailOpenDir != nil {
		return nil, f.FailOpenDir
	}
	dir := f.cwd
	if path != "" {
		dir = f.find(path)
		if dir == nil {
			return nil, ftpcore.ErrNotFound
		}
		if !dir.IsDir {
			return nil, ftpcore.ErrNotDir
		}
	}
	return &dirIter{entries: dir.Entries}, nil
}

func (f *Fs) OpenRead(path string) (ftpcore.FileReader, error) {
	if f.FailOpenRead != nil {
		return nil, f.FailOpenRead
	}
	e := f.find(path)
	if e == nil {
		return nil, ftpcore.ErrNotFound
	}
	if e.IsDir {
		return nil, ftpcore.ErrIsDir
	}
	return &fileReader{data: e.Content}, nil
}

func (f *Fs) OpenWrite(path string) (ftpcore.FileWriter, error) {
	if f.FailOpenWrite != nil {
		return nil, f.FailOpenWrite
	}
	e := f.find(path)
	if e == nil {
		e = &File{Name: path}
		f.cwd.Entries = append(f.cwd.Entries, e)
	}
	if e.IsDir {
		return nil, ftpcore.ErrIsDir
	}
	e.Content = e.Content[:0]
	return &fileWriter{file: e, MaxWrite: f.WriteChunk}, nil
}

func (f *Fs) Delete(path string) error {
	for i, e := range f.cwd.Entries {
		if e.Name == path {
			if e.IsDir {
				return ftpcore.ErrIsDir
			}
			f.cwd.Entries = append(f.cwd.Entries[:i], f.cwd.Entries[i+1:]...)
			return nil
		}
	}
	return ftpcore.ErrNotFound
}

func (f *Fs) Rename(fromPath, toPath string) error {
	for _, e := range f.cwd.Entries {
		if e.Name == fromPath {
			e.Name = toPath
			return nil
		}
	}
	return ftpcore.ErrNotFound
}

func (f *Fs) Mkdir(path string) error {
	if f.find(path) != nil {
		return ftpcore.ErrExists
	}
	f.cwd.Entries = append(f.cwd.Entries, &File{Name: path, IsDir: true})
	return nil
}

func (f *Fs) Rmdir(path string) error {
	for i, e := range f.cwd.Entries {
		if e.Name == path {
			if !e.IsDir {
				return ftpcore.ErrNotDir
			}
			f.cwd.Entries = append(f.cwd.Entries[:i], f.cwd.Entries[i+1:]...)
			return nil
		}
	}
	return ftpcore.ErrNotFound
}

func (f *Fs) Size(path string) (int64, error) {
	e := f.find(path)
	if e == nil {
		return 0, ftpcore.ErrNotFound
	}
	return int64(len(e.Content)), nil
}

func (f *Fs) Mtime(path string) (int64, error) {
	e := f.find(path)
	if e == nil {
		return 0, ftpcore.ErrNotFound
	}
	return e.Mtime, nil
}

type cwd struct {
	fs *Fs
}

func (c *cwd) Pwd(buf []byte) ([]byte, error) {
	name := "/" + c.fs.cwd.Name
	if c.fs.cwd == c.fs.root {
		name = "/"
	}
	if len(name) > len(buf) {
		return nil, ftpcore.ErrIO
	}
	n := copy(buf, name)
	return buf[:n], nil
}

func (c *cwd) Change(path string) error {
	// "locked" and "ioerr" are reserved names that always fail with the
	// corresponding Fs-error kind, for exercising the error-mapping table
	// without a real permission or I/O layer underneath.
	switch path {
	case "locked":
		return ftpcore.ErrPermissionDenied
	case "ioerr":
		return ftpcore.ErrIO
	}
	e := c.fs.find(path)
	if e == nil {
		return ftpcore.ErrNotFound
	}
	if !e.IsDir {
		return ftpcore.ErrNotDir
	}
	c.fs.cwd = e
	return nil
}

func (c *cwd) Up() error {
	c.fs.cwd = c.fs.root
	return nil
}

type dirIter struct {
	entries []*File
	i       int
}

func (it *dirIter) Next() (ftpcore.DirEntry, bool, error) {
	if it.i >= len(it.entries) {
		return ftpcore.DirEntry{}, false, nil
	}
	e := it.entries[it.i]
	it.i++
	kind := ftpcore.EntryFile
	if e.IsDir {
		kind = ftpcore.EntryDir
	}
	return ftpcore.DirEntry{
		Name:     e.Name,
		Kind:     kind,
		HasSize:  !e.IsDir,
		Size:     int64(len(e.Content)),
		HasMtime: e.Mtime != 0,
		Mtime:    e.Mtime,
	}, true, nil
}

func (it *dirIter) Close() error { return nil }

type fileReader struct {
	data []byte
	off  int
}

func (r *fileReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, nil
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

func (r *fileReader) Close() error { return nil }

// fileWriter appends every Write to file.Content, with an optional cap on
// bytes accepted per call to exercise STOR's short-write resume path.
type fileWriter struct {
	file     *File
	MaxWrite int
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n := len(p)
	if w.MaxWrite > 0 && w.MaxWrite < n {
		n = w.MaxWrite
	}
	w.file.Content = append(w.file.Content, p[:n]...)
	return n, nil
}

func (w *fileWriter) Close() error { return nil }
