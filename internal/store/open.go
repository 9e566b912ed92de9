package store

// MemoryPath selects the in-memory recorder in Open.
const MemoryPath = ":memory:"

// Open returns a SQLite recorder at path, or a MemoryRecorder when path
// is empty or MemoryPath.
func Open(path string) (Recorder, error) {
	if path == "" || path == MemoryPath {
		return NewMemoryRecorder(), nil
	}
	return NewSQLiteRecorder(path)
}
