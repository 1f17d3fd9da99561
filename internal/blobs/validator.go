package blobs

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/lgulliver/simpledrive/pkg/config"
	"github.com/lgulliver/simpledrive/pkg/utils"
)

var (
	base64Pattern     = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)
	misplacedPadding  = regexp.MustCompile(`[^=]=[^=]`)
	defaultMaxSize    = int64(50 << 20)
	errBlobIDRequired = "Blob ID is required"
	errDataRequired   = "Content is required"
	errBlobIDPath     = "Blob ID must be a relative path without empty or '..' segments"
)

// Validator checks blob ids and base64 payloads before anything is stored
type Validator struct {
	maxSize             int64
	allowEmpty          bool
	allowedExtensions   []string
	allowedContentTypes []string
}

// NewValidator creates a validator from configuration
func NewValidator(cfg config.ValidationConfig) *Validator {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}

	extensions := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		extensions = append(extensions, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}

	return &Validator{
		maxSize:             maxSize,
		allowEmpty:          cfg.AllowEmpty,
		allowedExtensions:   extensions,
		allowedContentTypes: cfg.AllowedContentTypes,
	}
}

// Validate returns every problem found with the blob, or nil. Checks stop
// early when a later check would be meaningless. Empty content is only
// accepted when the configuration allows it.
func (v *Validator) Validate(blobID, content string) []string {
	var problems []string

	if strings.TrimSpace(blobID) == "" {
		problems = append(problems, errBlobIDRequired)
	} else if !validBlobPath(blobID) {
		problems = append(problems, errBlobIDPath)
	}
	if content == "" {
		if v.allowEmpty {
			return problems
		}
		problems = append(problems, errDataRequired)
	}
	if len(problems) > 0 {
		return problems
	}

	if !base64Pattern.MatchString(content) {
		problems = append(problems, "Content is not valid base64")
	}
	if misplacedPadding.MatchString(content) {
		problems = append(problems, "Content has invalid base64 padding")
	}
	if len(problems) > 0 {
		return problems
	}

	// the estimate never undercounts, so the decoded copy is only made for
	// payloads that fit
	if estimated := int64(len(content)) * 3 / 4; estimated > v.maxSize {
		return []string{fmt.Sprintf("Content exceeds the maximum size of %s", utils.FormatBytes(v.maxSize))}
	}

	decoded, err := base64.StdEncoding.Strict().DecodeString(content)
	if err != nil {
		return []string{fmt.Sprintf("Content is not valid base64: %v", err)}
	}

	if len(v.allowedContentTypes) > 0 {
		if problem := v.checkContentType(decoded); problem != "" {
			problems = append(problems, problem)
		}
	}
	if len(v.allowedExtensions) > 0 {
		if problem := v.checkExtension(blobID); problem != "" {
			problems = append(problems, problem)
		}
	}

	return problems
}

func (v *Validator) checkContentType(decoded []byte) string {
	detected := mimetype.Detect(decoded)
	for _, allowed := range v.allowedContentTypes {
		if detected.Is(allowed) {
			return ""
		}
	}
	return fmt.Sprintf("Content type %s is not allowed (allowed: %s)",
		detected.String(), strings.Join(v.allowedContentTypes, ", "))
}

// checkExtension only applies to ids that carry an extension
func (v *Validator) checkExtension(blobID string) string {
	idx := strings.LastIndex(blobID, ".")
	if idx < 0 || idx == len(blobID)-1 {
		return ""
	}
	ext := strings.ToLower(blobID[idx+1:])
	for _, allowed := range v.allowedExtensions {
		if ext == allowed {
			return ""
		}
	}
	return fmt.Sprintf("Extension %s is not allowed (allowed: %s)", ext, strings.Join(v.allowedExtensions, ", "))
}

// validBlobPath reports whether id can be served back from GET /blobs/<id>
// and stays inside every backend's root.
func validBlobPath(id string) bool {
	if strings.Contains(id, "\\") {
		return false
	}
	for _, segment := range strings.Split(id, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}
