package records

import "context"

// Store is the persistence contract for OCR records and stored files.
//
// FindByPath and GetStoredFile return (nil, nil) when nothing matches; Get
// returns ErrNotFound. List methods order results by ascending ID.
type Store interface {
	FindByPath(ctx context.Context, path string) (*OcrRecord, error)
	Get(ctx context.Context, id int64) (*OcrRecord, error)
	ListByStatus(ctx context.Context, status Status) ([]*OcrRecord, error)
	List(ctx context.Context, statuses ...Status) ([]*OcrRecord, error)
	FindByMatchedFile(ctx context.Context, fileID int64) ([]*OcrRecord, error)
	Insert(ctx context.Context, rec *OcrRecord) (*OcrRecord, error)
	Save(ctx context.Context, rec *OcrRecord) error
	Stats(ctx context.Context) (Stats, error)

	StoredFiles(ctx context.Context) ([]StoredFile, error)
	GetStoredFile(ctx context.Context, id int64) (*StoredFile, error)
	AddStoredFile(ctx context.Context, file StoredFile) (*StoredFile, error)

	CheckHealth(ctx context.Context) (DatabaseHealth, error)
	Close() error
}
