package skill

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolvePath implements the Filesystem handler path-resolution rules of
// spec §4.3: normalize, require the result to be a prefix-child of some
// allowed_path, and reject if it's a prefix-child of any blocked_path
// (checked both absolute and relative-to-each-root). The check is purely
// lexical: symlinks are not resolved (filepath.EvalSymlinks is never
// called), so a symlink inside an allowed root that points outside it
// passes the check and is followed by the file operation.
func resolvePath(path string, allowedPaths, blockedPaths []string) (string, error) {
	if len(allowedPaths) == 0 {
		return "", fmt.Errorf("no allowed paths configured")
	}

	normalized := path
	if !filepath.IsAbs(normalized) {
		normalized = filepath.Join(allowedPaths[0], normalized)
	}
	normalized = filepath.Clean(normalized)

	if !isPrefixChildOfAny(normalized, allowedPaths) {
		return "", fmt.Errorf("path %q is outside all allowed paths", path)
	}

	for _, blocked := range blockedPaths {
		if isPrefixChild(normalized, blocked) {
			return "", fmt.Errorf("path %q is inside a blocked path", path)
		}
		for _, root := range allowedPaths {
			if isPrefixChild(normalized, filepath.Join(root, blocked)) {
				return "", fmt.Errorf("path %q is inside a blocked path", path)
			}
		}
	}

	return normalized, nil
}

func isPrefixChildOfAny(path string, roots []string) bool {
	for _, root := range roots {
		if isPrefixChild(path, root) {
			return true
		}
	}
	return false
}

func isPrefixChild(path, root string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
