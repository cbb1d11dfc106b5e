package port

import "context"

// ReportStorage keeps generated report documents under a base directory.
// Names are relative to that directory.
type ReportStorage interface {
	Save(ctx context.Context, name string, content []byte) (string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) bool
	Delete(ctx context.Context, name string) error
	FullPath(name string) string
}
