// Package storage defines the minimal write/read target interface used
// by the HiPS tile engine to land tiles, allsky images, MOC files, and
// the properties text file. Concrete targets (filesystem, ZIP, OPFS)
// implement it; only the local filesystem target ships in this module,
// ZIP and OPFS remain external collaborators behind the same
// interface.
package storage

// Target is anything that can durably hold a HiPS dataset (or any other
// tree of named byte/text blobs). Paths always use forward slashes and
// are relative to a target-chosen root; a Target must create any
// missing parent directories implicitly on write.
type Target interface {
	WriteBinary(path string, data []byte) error
	WriteText(path string, text string) error
	ReadBinary(path string) ([]byte, error)
	ReadText(path string) (string, error)
	Exists(path string) bool
	// Finalize flushes any buffered state (e.g. closing a ZIP central
	// directory). Targets with nothing to flush may leave it a no-op.
	Finalize() error
}
