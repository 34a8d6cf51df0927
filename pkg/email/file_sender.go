package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FileProvider writes each message as an HTML file plus JSON metadata
// instead of sending it. Meant for local development.
type FileProvider struct {
	dir string
	now func() time.Time
}

func NewFileProvider(dir string) (*FileProvider, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &NotConfiguredError{Provider: "file", Missing: []string{"DEV_MAIL_DIR"}}
	}
	return &FileProvider{dir: dir, now: time.Now}, nil
}

func (f *FileProvider) Name() string { return "file" }

type fileMetadata struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	ReplyTo   string `json:"reply_to,omitempty"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
}

func (f *FileProvider) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrSendFailed, err)
	}

	now := f.now()
	identifier := msg.Tag
	if identifier == "" {
		identifier = msg.Subject
	}
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405.000000"), sanitizeFilename(identifier))

	if err := os.WriteFile(filepath.Join(f.dir, base+".html"), []byte(msg.HTMLBody), 0o644); err != nil {
		return fmt.Errorf("%w: write HTML file: %v", ErrSendFailed, err)
	}

	meta, err := json.MarshalIndent(fileMetadata{
		Timestamp: now.Format(time.RFC3339),
		To:        msg.To,
		ReplyTo:   msg.ReplyTo,
		Subject:   msg.Subject,
		Tag:       msg.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %v", ErrSendFailed, err)
	}

	if err := os.WriteFile(filepath.Join(f.dir, base+".json"), meta, 0o644); err != nil {
		return fmt.Errorf("%w: write JSON file: %v", ErrSendFailed, err)
	}
	return nil
}

var unsafeFilenameRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilenameRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
