package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var Files embed.FS

// GetFS returns the schema migrations, applied in file-name order
func GetFS() fs.FS {
	return Files
}
