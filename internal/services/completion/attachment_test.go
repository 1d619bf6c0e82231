package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iyunix/go-juri/internal/domain"
)

func TestValidateRequest(t *testing.T) {
	cfg := DefaultFilePolicy()

	assert.NoError(t, ValidateRequest(cfg, &Request{Text: "hello"}))
	assert.NoError(t, ValidateRequest(cfg, &Request{File: &Attachment{Name: "lease.PDF", Data: []byte("%PDF")}}))

	err := ValidateRequest(cfg, &Request{Text: "  "})
	assert.True(t, domain.IsKind(err, domain.ErrKindValidation))

	err = ValidateRequest(cfg, nil)
	assert.True(t, domain.IsKind(err, domain.ErrKindValidation))

	err = ValidateRequest(cfg, &Request{File: &Attachment{Name: "photo.png"}})
	assert.True(t, domain.IsKind(err, domain.ErrKindUnsupportedFile))

	err = ValidateRequest(cfg, &Request{File: &Attachment{Name: "noext"}})
	assert.True(t, domain.IsKind(err, domain.ErrKindUnsupportedFile))
}

func TestValidateAttachmentSize(t *testing.T) {
	cfg := DefaultFilePolicy()

	assert.NoError(t, ValidateAttachment(cfg, "contract.docx", cfg.MaxFileSize))

	err := ValidateAttachment(cfg, "contract.docx", cfg.MaxFileSize+1)
	assert.True(t, domain.IsKind(err, domain.ErrKindUnsupportedFile))
	assert.Contains(t, err.Error(), "10MB")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.QueryURL = "http://localhost/webhook/query"
	cfg.DocumentURL = "http://localhost/webhook/document"
	assert.NoError(t, cfg.Validate())

	cfg.DocumentURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Backend = BackendOpenAI
	assert.Error(t, cfg.Validate())
	cfg.OpenAIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}
