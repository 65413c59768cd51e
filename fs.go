package parkio

import "os"

// Open opens the named file for reading. Thin OS passthrough for code
// that pairs a plain file handle with a FileIo bridge.
func Open(name string) (*os.File, error) {
	return os.Open(name)
}

// Create creates or truncates the named file.
func Create(name string) (*os.File, error) {
	return os.Create(name)
}

// OpenFile is the generalized open call with explicit flag and
// permission bits.
func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}
