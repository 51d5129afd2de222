package skill

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/duskcore/agentd/internal/domain/entity"
	"go.uber.org/zap"
)

const (
	searchFilesCap  = 2000
	maxDataURIBytes = 10 * 1024 * 1024
)

// binaryExtensions maps a file extension to the content type read_file
// should return as a data-URI instead of raw text.
var binaryExtensions = map[string]string{
	".png": "image/png", ".jpg": "image/jpeg", ".jpeg": "image/jpeg",
	".gif": "image/gif", ".webp": "image/webp", ".bmp": "image/bmp",
	".pdf": "application/pdf",
}

// textLikeExtensions is the set of extensions search_files scans for
// content matches, beyond matching on filename alone.
var textLikeExtensions = map[string]bool{
	".go": true, ".rs": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".md": true, ".txt": true, ".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".sh": true, ".html": true, ".css": true, ".c": true, ".h": true, ".cpp": true, ".java": true,
}

// FilesystemHandler implements the filesystem skill's method table
// (spec §4.3), grounded on the teacher's builtin_tools.go file tools,
// adapted to the spec's allowed/blocked-path resolution contract.
type FilesystemHandler struct {
	logger *zap.Logger
}

func NewFilesystemHandler(logger *zap.Logger) *FilesystemHandler {
	return &FilesystemHandler{logger: logger}
}

func (h *FilesystemHandler) Call(method string, params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	switch method {
	case "read_file":
		return h.readFile(params, allowedPaths, blockedPaths)
	case "read_many_files":
		return h.readManyFiles(params, allowedPaths, blockedPaths)
	case "read_file_chunk":
		return h.readFileChunk(params, allowedPaths, blockedPaths)
	case "list_files":
		return h.listFiles(params, allowedPaths, blockedPaths, false)
	case "list_files_detailed":
		return h.listFiles(params, allowedPaths, blockedPaths, true)
	case "file_exists":
		return h.fileExists(params, allowedPaths, blockedPaths)
	case "get_file_info":
		return h.getFileInfo(params, allowedPaths, blockedPaths)
	case "search_files":
		return h.searchFiles(params, allowedPaths, blockedPaths)
	case "write_file":
		return h.writeFile(params, allowedPaths, blockedPaths, false)
	case "append_file":
		return h.writeFile(params, allowedPaths, blockedPaths, true)
	case "mkdir":
		return h.mkdir(params, allowedPaths, blockedPaths)
	case "delete_file":
		return h.deleteFile(params, allowedPaths, blockedPaths)
	case "move_file":
		return h.moveFile(params, allowedPaths, blockedPaths)
	default:
		return nil, fmt.Errorf("unknown filesystem method %q", method)
	}
}

func (h *FilesystemHandler) readFile(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	path, ok := stringParam(params, "path")
	if !ok {
		return failResult("path is required"), nil
	}
	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	if mimeType, isBinary := binaryExtensions[ext]; isBinary {
		info, err := os.Stat(resolved)
		if err != nil {
			return failResult(err.Error()), nil
		}
		if info.Size() > maxDataURIBytes {
			return failResult(fmt.Sprintf("file exceeds %d byte data-URI cap", maxDataURIBytes)), nil
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return failResult(err.Error()), nil
		}
		dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
		return &entity.CommandResult{Success: true, Output: dataURI, Metadata: map[string]interface{}{"content_type": mimeType, "size": info.Size()}}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return failResult(err.Error()), nil
	}
	return &entity.CommandResult{Success: true, Output: string(data)}, nil
}

func (h *FilesystemHandler) readManyFiles(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	raw, ok := params["paths"].([]interface{})
	if !ok || len(raw) == 0 {
		return failResult("paths is required"), nil
	}
	var sb strings.Builder
	meta := map[string]interface{}{}
	for _, p := range raw {
		path, _ := p.(string)
		resolved, err := resolvePath(path, allowedPaths, blockedPaths)
		if err != nil {
			sb.WriteString(fmt.Sprintf("=== %s (error: %s) ===\n\n", path, err.Error()))
			continue
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			sb.WriteString(fmt.Sprintf("=== %s (error: %s) ===\n\n", path, err.Error()))
			continue
		}
		sb.WriteString(fmt.Sprintf("=== %s ===\n%s\n\n", path, string(data)))
	}
	meta["count"] = len(raw)
	return &entity.CommandResult{Success: true, Output: sb.String(), Metadata: meta}, nil
}

func (h *FilesystemHandler) readFileChunk(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	path, ok := stringParam(params, "path")
	if !ok {
		return failResult("path is required"), nil
	}
	offset := int64(intParam(params, "offset", 0))
	length := int64(intParam(params, "length", 4096))

	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}
	f, err := os.Open(resolved)
	if err != nil {
		return failResult(err.Error()), nil
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return failResult(err.Error()), nil
	}
	buf := make([]byte, length)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return failResult(err.Error()), nil
	}
	return &entity.CommandResult{Success: true, Output: string(buf[:n]), Metadata: map[string]interface{}{"bytes_read": n, "offset": offset}}, nil
}

func (h *FilesystemHandler) listFiles(params map[string]interface{}, allowedPaths, blockedPaths []string, detailed bool) (*entity.CommandResult, error) {
	path, _ := stringParam(params, "path")
	if path == "" {
		path = "."
	}
	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return failResult(err.Error()), nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var lines []string
	for _, e := range entries {
		if !detailed {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			lines = append(lines, name)
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\t%d\t%s\t%v", e.Name(), info.Size(), info.Mode().String(), e.IsDir()))
	}
	return &entity.CommandResult{Success: true, Output: strings.Join(lines, "\n"), Metadata: map[string]interface{}{"count": len(lines)}}, nil
}

func (h *FilesystemHandler) fileExists(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	path, ok := stringParam(params, "path")
	if !ok {
		return failResult("path is required"), nil
	}
	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return &entity.CommandResult{Success: true, Output: "false"}, nil
	}
	_, statErr := os.Stat(resolved)
	exists := statErr == nil
	return &entity.CommandResult{Success: true, Output: fmt.Sprintf("%v", exists)}, nil
}

func (h *FilesystemHandler) getFileInfo(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	path, ok := stringParam(params, "path")
	if !ok {
		return failResult("path is required"), nil
	}
	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return failResult(err.Error()), nil
	}
	meta := map[string]interface{}{
		"size":     info.Size(),
		"mode":     info.Mode().String(),
		"mod_time": info.ModTime().Format("2006-01-02T15:04:05Z07:00"),
		"is_dir":   info.IsDir(),
	}
	return &entity.CommandResult{Success: true, Output: fmt.Sprintf("%+v", meta), Metadata: meta}, nil
}

func (h *FilesystemHandler) searchFiles(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	path, _ := stringParam(params, "path")
	if path == "" {
		path = "."
	}
	namePattern, _ := stringParam(params, "pattern")
	contentPattern, hasContentPattern := stringParam(params, "content_pattern")

	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}

	var nameRe, contentRe *regexp.Regexp
	if namePattern != "" {
		nameRe, err = regexp.Compile(namePattern)
		if err != nil {
			return failResult("invalid pattern: " + err.Error()), nil
		}
	}
	if hasContentPattern {
		contentRe, err = regexp.Compile(contentPattern)
		if err != nil {
			return failResult("invalid content_pattern: " + err.Error()), nil
		}
	}

	var matches []string
	scanned := 0
	walkErr := filepath.Walk(resolved, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if scanned >= searchFilesCap {
			return filepath.SkipAll
		}
		scanned++

		if nameRe != nil && nameRe.MatchString(info.Name()) {
			matches = append(matches, p)
			return nil
		}
		if contentRe != nil && textLikeExtensions[strings.ToLower(filepath.Ext(p))] {
			data, err := os.ReadFile(p)
			if err == nil && contentRe.Match(data) {
				matches = append(matches, p)
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return failResult(walkErr.Error()), nil
	}

	return &entity.CommandResult{
		Success:  true,
		Output:   strings.Join(matches, "\n"),
		Metadata: map[string]interface{}{"matches": len(matches), "scanned": scanned, "capped": scanned >= searchFilesCap},
	}, nil
}

func (h *FilesystemHandler) writeFile(params map[string]interface{}, allowedPaths, blockedPaths []string, appendMode bool) (*entity.CommandResult, error) {
	path, ok := stringParam(params, "path")
	if !ok {
		return failResult("path is required"), nil
	}
	content, _ := stringParam(params, "content")

	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return failResult(err.Error()), nil
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return failResult(err.Error()), nil
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return failResult(err.Error()), nil
	}
	return &entity.CommandResult{Success: true, Output: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}, nil
}

func (h *FilesystemHandler) mkdir(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	path, ok := stringParam(params, "path")
	if !ok {
		return failResult("path is required"), nil
	}
	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return failResult(err.Error()), nil
	}
	return &entity.CommandResult{Success: true, Output: "created " + path}, nil
}

func (h *FilesystemHandler) deleteFile(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	path, ok := stringParam(params, "path")
	if !ok {
		return failResult("path is required"), nil
	}
	resolved, err := resolvePath(path, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}
	if err := os.RemoveAll(resolved); err != nil {
		return failResult(err.Error()), nil
	}
	return &entity.CommandResult{Success: true, Output: "deleted " + path}, nil
}

func (h *FilesystemHandler) moveFile(params map[string]interface{}, allowedPaths, blockedPaths []string) (*entity.CommandResult, error) {
	src, ok := stringParam(params, "source")
	if !ok {
		return failResult("source is required"), nil
	}
	dst, ok := stringParam(params, "destination")
	if !ok {
		return failResult("destination is required"), nil
	}
	resolvedSrc, err := resolvePath(src, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}
	resolvedDst, err := resolvePath(dst, allowedPaths, blockedPaths)
	if err != nil {
		return failResult(err.Error()), nil
	}
	if err := os.MkdirAll(filepath.Dir(resolvedDst), 0o755); err != nil {
		return failResult(err.Error()), nil
	}
	if err := os.Rename(resolvedSrc, resolvedDst); err != nil {
		return failResult(err.Error()), nil
	}
	return &entity.CommandResult{Success: true, Output: fmt.Sprintf("moved %s to %s", src, dst)}, nil
}

func failResult(msg string) *entity.CommandResult {
	return &entity.CommandResult{Success: false, Error: msg}
}

func stringParam(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key].(string)
	return v, ok && v != ""
}

func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
