package blob

import (
	"path"
	"path/filepath"
	"strings"
)

// ParsePath splits an object identifier into its bucket and key. The s3://
// scheme prefix is optional and discarded. The key is everything after the
// first slash and is treated as opaque bytes: further slashes, backslashes
// and other special characters are preserved as-is.
func ParsePath(s string) (bucket, key string) {
	s = strings.TrimPrefix(s, "s3://")
	bucket, key, _ = strings.Cut(s, "/")
	return bucket, key
}

// Path returns the canonical s3://bucket/key form of an object identifier.
func Path(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// UnloadPath returns the unload target for a bucket and optional folder:
// s3://bucket/folder, or s3://bucket when no folder is given. A folder that
// does not end in a slash acts as a file name prefix rather than a
// directory.
func UnloadPath(bucket, folder string) string {
	if folder != "" {
		return "s3://" + bucket + "/" + folder
	}
	return "s3://" + bucket
}

// Key derives the object key for a local file: the file's basename, prefixed
// by folder and a slash when folder is non-empty. All parts of one split
// upload share every key segment except the numeric and compression
// suffixes, which is what lets a single COPY path address them by prefix.
func Key(folder, localPath string) string {
	if folder == "" {
		return filepath.Base(localPath)
	}
	return folder + "/" + filepath.Base(localPath)
}

// baseName is the final element of an object key, used as the local file
// name on download.
func baseName(key string) string {
	return path.Base(key)
}
