// internal/posttypes/file_info.go
package posttypes

// FileInfo describes a stored attachment and where it can be fetched.
type FileInfo struct {
	URL      string `json:"url"`      // publicly reachable URL
	Path     string `json:"path"`     // location inside the storage backend
	Size     int64  `json:"size"`     // bytes
	MimeType string `json:"mimeType"` // content type as uploaded
	FileName string `json:"fileName"` // stored file name
}
