package completion

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iyunix/go-juri/internal/domain"
)

// ValidateRequest rejects a request before any network call: it needs text or a file,
// and the file must have an allowed extension and fit the size limit.
func ValidateRequest(policy FilePolicy, req *Request) error {
	if req == nil {
		return domain.NewValidationError("complete", "request is required")
	}
	if req.File == nil {
		if strings.TrimSpace(req.Text) == "" {
			return domain.NewValidationError("complete", "message text or a file is required")
		}
		return nil
	}
	return ValidateAttachment(policy, req.File.Name, int64(len(req.File.Data)))
}

// ValidateAttachment checks a file name and size against policy.
func ValidateAttachment(policy FilePolicy, name string, size int64) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" || !containsFold(policy.AllowedExtensions, ext) {
		return domain.NewUnsupportedFileError("validate_file",
			fmt.Sprintf("Unsupported file format. Supported formats: %s", strings.Join(policy.AllowedExtensions, ", ")))
	}
	if size > policy.MaxFileSize {
		return domain.NewUnsupportedFileError("validate_file",
			fmt.Sprintf("File size too large. Maximum size is %dMB.", policy.MaxFileSize/(1024*1024)))
	}
	return nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
