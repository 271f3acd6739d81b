package rosterclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/iliyamo/mel-roster/internal/model"
)

// MaxLogoBytes is the largest logo the service accepts.
const MaxLogoBytes = 5 * 1024 * 1024

var (
	// ErrLogoEmpty is returned when no image bytes were supplied.
	ErrLogoEmpty = errors.New("logo file is required")
	// ErrLogoTooLarge is returned for images over MaxLogoBytes.
	ErrLogoTooLarge = errors.New("file size must be less than 5MB")
	// ErrLogoType is returned for anything other than PNG or JPEG.
	ErrLogoType = errors.New("logo must be a PNG or JPEG image")
)

// Document is a binary payload returned by the service: a generated MEL or
// a logo image.
type Document struct {
	Data        []byte
	ContentType string
}

// ValidateLogo checks size and type before anything is sent and returns
// the detected content type.
func ValidateLogo(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrLogoEmpty
	}
	if len(data) > MaxLogoBytes {
		return "", ErrLogoTooLarge
	}
	ct := http.DetectContentType(data)
	switch ct {
	case "image/png", "image/jpeg":
	default:
		return "", fmt.Errorf("%w: detected %s", ErrLogoType, ct)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", "":
	default:
		return "", fmt.Errorf("%w: extension %s", ErrLogoType, filepath.Ext(filename))
	}
	return ct, nil
}

// UploadLogo attaches a custom logo to a session.
func (c *Client) UploadLogo(ctx context.Context, sessionID, filename string, data []byte) (model.LogoInfo, error) {
	const op = "upload logo"
	if sessionID == "" {
		return model.LogoInfo{}, ErrEmptySessionID
	}
	ct, err := ValidateLogo(filename, data)
	if err != nil {
		return model.LogoInfo{}, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="logo"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return model.LogoInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := part.Write(data); err != nil {
		return model.LogoInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return model.LogoInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	var out model.LogoInfo
	err = c.doJSON(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/api/roster/logo" + pathEscape(sessionID),
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return model.LogoInfo{}, err
	}
	out.Uploaded = true
	if out.Filename == "" {
		out.Filename = filepath.Base(filename)
	}
	return out, nil
}

// GetLogo returns the logo image of a session.
func (c *Client) GetLogo(ctx context.Context, sessionID string) (Document, error) {
	if sessionID == "" {
		return Document{}, ErrEmptySessionID
	}
	body, ct, err := c.do(ctx, request{
		op:     "load logo",
		method: http.MethodGet,
		path:   "/api/roster/logo" + pathEscape(sessionID),
	})
	if err != nil {
		return Document{}, err
	}
	return Document{Data: body, ContentType: ct}, nil
}

// DeleteLogo removes the custom logo of a session.
func (c *Client) DeleteLogo(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	_, _, err := c.do(ctx, request{
		op:     "delete logo",
		method: http.MethodDelete,
		path:   "/api/roster/logo" + pathEscape(sessionID),
	})
	return err
}
