package config

import (
	"flag"
	"time"

	"github.com/cshum/pixbright"
	"github.com/cshum/pixbright/storage/filestorage"
)

// fileFlags flags of one file storage, registered under a name such as file-storage
type fileFlags struct {
	baseDir    *string
	pathPrefix *string
	mkdirPerm  *string
	writePerm  *string
	expiration *time.Duration
}

func newFileFlags(fs *flag.FlagSet, name, title string) fileFlags {
	return fileFlags{
		baseDir: fs.String(name+"-base-dir", "",
			"Base directory for "+title+". Enable "+title+" only if this value present"),
		pathPrefix: fs.String(name+"-path-prefix", "",
			"Base path prefix for "+title),
		mkdirPerm: fs.String(name+"-mkdir-permission", "0755",
			title+" mkdir permission"),
		writePerm: fs.String(name+"-write-permission", "0666",
			title+" write permission"),
		expiration: fs.Duration(name+"-expiration", 0,
			title+" expiration duration e.g. 24h. Default no expiration"),
	}
}

// storage creates the FileStorage, nil if no base dir is configured
func (f fileFlags) storage(safeChars string) pixbright.Storage {
	if *f.baseDir == "" {
		return nil
	}
	return filestorage.New(*f.baseDir,
		filestorage.WithPathPrefix(*f.pathPrefix),
		filestorage.WithMkdirPermission(*f.mkdirPerm),
		filestorage.WithWritePermission(*f.writePerm),
		filestorage.WithSafeChars(safeChars),
		filestorage.WithExpiration(*f.expiration),
	)
}

// WithFileSystem with File Storage and File Result Storage config option
func WithFileSystem(fs *flag.FlagSet, cb Callback) pixbright.Option {
	var (
		safeChars = fs.String("file-safe-chars", "",
			"File safe characters to be excluded from image key escape. Set -- for no-op")
		storageFlags       = newFileFlags(fs, "file-storage", "File Storage")
		resultStorageFlags = newFileFlags(fs, "file-result-storage", "File Result Storage")

		_, _ = cb()
	)
	return func(app *pixbright.App) {
		if s := storageFlags.storage(*safeChars); s != nil {
			app.Storages = append(app.Storages, s)
		}
		if s := resultStorageFlags.storage(*safeChars); s != nil {
			app.ResultStorages = append(app.ResultStorages, s)
		}
	}
}
